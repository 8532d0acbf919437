package handlers

import (
	"net/http"

	serviceInterfaces "school-registration/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// RegistrationHandler handles registration-related HTTP requests
type RegistrationHandler struct {
	registrationService serviceInterfaces.RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrationService serviceInterfaces.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

// Register handles POST /api/v1/families/:family_id/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}

	var req serviceInterfaces.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	balance, err := h.registrationService.RegisterForArrangement(c.Request.Context(), familyID, &req)
	if err != nil {
		respondError(c, "Registration failed", err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: "Registration submitted",
		Data:    balance,
	})
}

// ListFamilyRegistrations handles GET /api/v1/families/:family_id/registrations
func (h *RegistrationHandler) ListFamilyRegistrations(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}

	registrations, err := h.registrationService.ListFamilyRegistrations(c.Request.Context(), familyID)
	if err != nil {
		respondError(c, "Failed to load registrations", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    registrations,
	})
}

// EffectiveBalance handles GET /api/v1/families/:family_id/seasons/:season_id/balance
func (h *RegistrationHandler) EffectiveBalance(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}
	seasonID, ok := paramID(c, "season_id")
	if !ok {
		return
	}

	balance, err := h.registrationService.EffectiveBalance(c.Request.Context(), familyID, seasonID)
	if err != nil {
		respondError(c, "Failed to compute balance", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"family_id": familyID,
			"season_id": seasonID,
			"balance":   balance,
		},
	})
}

// Drop handles POST /api/v1/admin/registrations/:reg_id/drop
func (h *RegistrationHandler) Drop(c *gin.Context) {
	regID, ok := paramID(c, "reg_id")
	if !ok {
		return
	}

	var req serviceInterfaces.DropRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.registrationService.AdminDropRegistration(c.Request.Context(), regID, req.StudentID, req.Override); err != nil {
		respondError(c, "Failed to drop registration", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Registration dropped",
	})
}

// ListSeasonRegistrations handles GET /api/v1/admin/seasons/:season_id/registrations
func (h *RegistrationHandler) ListSeasonRegistrations(c *gin.Context) {
	seasonID, ok := paramID(c, "season_id")
	if !ok {
		return
	}

	registrations, err := h.registrationService.ListSeasonRegistrations(c.Request.Context(), seasonID)
	if err != nil {
		respondError(c, "Failed to load registrations", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    registrations,
	})
}

// ListFamilyBalances handles GET /api/v1/admin/families/:family_id/balances
func (h *RegistrationHandler) ListFamilyBalances(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}

	balances, err := h.registrationService.ListFamilyBalances(c.Request.Context(), familyID)
	if err != nil {
		respondError(c, "Failed to load balances", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    balances,
	})
}
