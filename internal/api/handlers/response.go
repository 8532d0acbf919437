package handlers

import (
	"errors"
	"net/http"
	"strconv"

	domain "school-registration/internal/domain/registration"
	"school-registration/pkg/logger"
	"school-registration/pkg/validator"

	"github.com/gin-gonic/gin"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an APIResponse. Domain errors carry their own
// message; anything else is logged and hidden behind message.
func respondError(c *gin.Context, message string, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.WithField("path", c.Request.URL.Path).Errorf("%s: %v", message, err)
		c.JSON(status, APIResponse{
			Success: false,
			Message: message,
		})
		return
	}

	var de *domain.Error
	errors.As(err, &de)
	c.JSON(status, APIResponse{
		Success: false,
		Message: de.Msg,
		Errors:  err.Error(),
	})
}

// bindJSON decodes and validates the request body, writing the 400 itself.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid request format",
			Errors:  err.Error(),
		})
		return false
	}

	if err := validator.ValidateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  validator.FormatValidationError(err),
		})
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "Invalid " + name,
		})
		return 0, false
	}
	return id, true
}
