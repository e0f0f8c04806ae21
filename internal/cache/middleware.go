package cache

import (
	"bytes"
	"inkwell/internal/logging"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// bodyWriter tees the rendered response into buf while it is written out.
type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Page serves a cached rendering when one exists and otherwise records the
// handler's 200 response for ttl. Only GET and HEAD requests are cached.
func Page(store Store, ttl time.Duration, key func(*gin.Context) string, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ttl <= 0 || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		k := key(c)

		data, ok, err := store.Get(ctx, k)
		if err != nil {
			log.Warn(ctx, "page cache read failed", "key", k, "error", err)
		}
		if ok {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", data)
			c.Abort()
			return
		}

		w := &bodyWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = w
		c.Header("X-Cache", "MISS")
		c.Next()

		if w.Status() != http.StatusOK || len(c.Errors) > 0 {
			return
		}
		if err := store.Set(ctx, k, w.buf.Bytes(), ttl); err != nil {
			log.Warn(ctx, "page cache write failed", "key", k, "error", err)
		}
	}
}
