package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	interfaces "school-registration/internal/interfaces/infrastructure"
	"school-registration/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	CacheHeader         = "X-Cache"
	cacheWriteTimeout   = 2 * time.Second
	jsonContentTypeUTF8 = "application/json; charset=utf-8"
)

// bodyWriter keeps a copy of everything the handler writes.
type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func capture(c *gin.Context) *bodyWriter {
	w := &bodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = w
	return w
}

// storeContext detaches from the request so a cancelled client does not
// abort the cache write.
func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cacheWriteTimeout)
}

// ViewCache serves GET responses from the cache until the services revalidate
// the path. A nil cache disables it.
func ViewCache(cache interfaces.ResponseCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		body, ok, err := cache.GetView(c.Request.Context(), path)
		if err != nil {
			logger.WithField("path", path).Warnf("View cache read failed: %v", err)
		}
		if ok {
			c.Header(CacheHeader, "HIT")
			c.Data(http.StatusOK, jsonContentTypeUTF8, []byte(body))
			c.Abort()
			return
		}

		c.Header(CacheHeader, "MISS")
		w := capture(c)
		c.Next()

		if w.Status() != http.StatusOK {
			return
		}
		ctx, cancel := storeContext()
		defer cancel()
		if err := cache.SetView(ctx, path, w.body.String(), ttl); err != nil {
			logger.WithField("path", path).Warnf("View cache write failed: %v", err)
		}
	}
}
