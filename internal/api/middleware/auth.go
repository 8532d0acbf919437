package middleware

import (
	"net/http"
	"strconv"

	"school-registration/internal/auth"

	"github.com/gin-gonic/gin"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, response{Success: false, Message: message})
}

func callerOf(c *gin.Context) (auth.Caller, bool) {
	return auth.CallerFrom(c.Request.Context())
}

// Authenticate verifies the bearer token and stores the caller on the
// request context, where the services read it.
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		caller, err := tokens.Parse(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// RequireRole lets through callers holding one of roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.RequireRole(c.Request.Context(), roles...); err != nil {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

// FamilyAccess admits administrators and the family named by the route
// parameter. It must run before any cached view of the family's data.
func FamilyAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		familyID, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil {
			abort(c, http.StatusBadRequest, "invalid "+param)
			return
		}
		if _, err := auth.RequireFamily(c.Request.Context(), familyID); err != nil {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}
