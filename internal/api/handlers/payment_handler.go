package handlers

import (
	"net/http"

	serviceInterfaces "school-registration/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService serviceInterfaces.PaymentService
	reportService  serviceInterfaces.ReportService
}

func NewPaymentHandler(paymentService serviceInterfaces.PaymentService, reportService serviceInterfaces.ReportService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		reportService:  reportService,
	}
}

// ApplyCheck handles POST /api/v1/admin/families/:family_id/checks
func (h *PaymentHandler) ApplyCheck(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}

	var req serviceInterfaces.CheckPayment
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.ApplyCheck(c.Request.Context(), &req, familyID)
	if err != nil {
		respondError(c, "Failed to apply payment", err)
		return
	}

	message := "Partial payment recorded"
	if result.FullPayment {
		message = "Payment recorded"
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    result,
	})
}

// RemoveBalance handles DELETE /api/v1/admin/balances/:balance_id
func (h *PaymentHandler) RemoveBalance(c *gin.Context) {
	balanceID, ok := paramID(c, "balance_id")
	if !ok {
		return
	}

	if err := h.paymentService.RemoveBalance(c.Request.Context(), balanceID); err != nil {
		respondError(c, "Failed to remove balance", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Balance removed",
	})
}

// SeasonBalances handles GET /api/v1/admin/seasons/:season_id/balances
func (h *PaymentHandler) SeasonBalances(c *gin.Context) {
	seasonID, ok := paramID(c, "season_id")
	if !ok {
		return
	}

	rows, err := h.reportService.SeasonBalances(c.Request.Context(), seasonID)
	if err != nil {
		respondError(c, "Failed to load season balances", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    rows,
	})
}
