package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	interfaces "school-registration/internal/interfaces/infrastructure"
	"school-registration/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Idempotency replays the stored response of a POST that repeats an
// Idempotency-Key. Keys are scoped to the caller and the route, and only
// responses below 500 are kept.
func Idempotency(cache interfaces.ResponseCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if cache == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		scope := "anonymous"
		if caller, ok := callerOf(c); ok {
			scope = caller.UserID
		}
		key = scope + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		stored, ok, err := cache.GetIdempotent(c.Request.Context(), key)
		if err != nil {
			logger.WithField("idempotency_key", key).Warnf("Idempotency read failed: %v", err)
		}
		if ok {
			var prior storedResponse
			if err := json.Unmarshal([]byte(stored), &prior); err == nil {
				c.Header(ReplayedHeader, "true")
				c.Data(prior.Status, jsonContentTypeUTF8, prior.Body)
				c.Abort()
				return
			}
		}

		w := capture(c)
		c.Next()

		if w.Status() >= http.StatusInternalServerError || !json.Valid(w.body.Bytes()) {
			return
		}
		encoded, err := json.Marshal(storedResponse{Status: w.Status(), Body: w.body.Bytes()})
		if err != nil {
			return
		}
		ctx, cancel := storeContext()
		defer cancel()
		if err := cache.SetIdempotent(ctx, key, string(encoded), ttl); err != nil {
			logger.WithField("idempotency_key", key).Warnf("Idempotency write failed: %v", err)
		}
	}
}
