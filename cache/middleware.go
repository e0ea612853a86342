package cache

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware serves and fills the rendered-entry cache for public entry
// pages (/u/:username/pages/:id).
func Middleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		username, pageID, ok := entryPath(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		if cached, found := ReadCache(username, pageID, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		// Cache miss - capture response
		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		// Only cache successful HTML responses
		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == "text/html; charset=utf-8" {
			WriteCache(username, pageID, writer.body.String())
		}
	}
}

// entryPath matches /u/:username/pages/:id.
func entryPath(path string) (string, uint, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "u" || parts[2] != "pages" {
		return "", 0, false
	}
	id, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return "", 0, false
	}
	return parts[1], uint(id), true
}
