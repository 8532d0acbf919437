package handlers

import (
	"net/http"

	domain "school-registration/internal/domain/registration"
	serviceInterfaces "school-registration/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

type ChangeRequestHandler struct {
	requestService serviceInterfaces.ChangeRequestService
}

func NewChangeRequestHandler(requestService serviceInterfaces.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{requestService: requestService}
}

// Submit handles POST /api/v1/families/:family_id/requests
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	familyID, ok := paramID(c, "family_id")
	if !ok {
		return
	}

	var req serviceInterfaces.ChangeRequestInput
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.requestService.FamilySubmitRequest(c.Request.Context(), familyID, &req)
	if err != nil {
		respondError(c, "Failed to submit request", err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: "Request submitted",
		Data:    request,
	})
}

// Approve handles POST /api/v1/admin/requests/:request_id/approve
func (h *ChangeRequestHandler) Approve(c *gin.Context) {
	requestID, ok := paramID(c, "request_id")
	if !ok {
		return
	}

	var req serviceInterfaces.ApproveRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.requestService.AdminApproveRequest(c.Request.Context(), requestID, req.FamilyID)
	if err != nil {
		respondError(c, "Failed to approve request", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Request approved",
		Data:    request,
	})
}

// Reject handles POST /api/v1/admin/requests/:request_id/reject
func (h *ChangeRequestHandler) Reject(c *gin.Context) {
	requestID, ok := paramID(c, "request_id")
	if !ok {
		return
	}

	var req serviceInterfaces.RejectRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.requestService.AdminRejectRequest(c.Request.Context(), requestID, req.FamilyID, req.Memo)
	if err != nil {
		respondError(c, "Failed to reject request", err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Request rejected",
		Data:    request,
	})
}

// Undo handles POST /api/v1/admin/requests/:request_id/undo. The outcome is
// returned with the status of its error so the admin page can show it inline.
func (h *ChangeRequestHandler) Undo(c *gin.Context) {
	requestID, ok := paramID(c, "request_id")
	if !ok {
		return
	}

	var req serviceInterfaces.UndoRequest
	if !bindJSON(c, &req) {
		return
	}
	expected, err := domain.ParseReqStatus(req.ExpectedStatus)
	if err != nil {
		respondError(c, "Failed to undo request", err)
		return
	}

	outcome := h.requestService.AdminUndoRequest(c.Request.Context(), requestID, req.FamilyID, expected)
	if outcome.Err != nil {
		status := statusOf(outcome.Err)
		message := outcome.Err.Error()
		if status == http.StatusInternalServerError {
			message = "Failed to undo request"
		}
		c.JSON(status, APIResponse{
			Success: false,
			Message: message,
			Data:    outcome,
		})
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: "Request returned to pending",
		Data:    outcome,
	})
}
