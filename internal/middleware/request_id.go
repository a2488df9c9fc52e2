package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// RequestID attaches a request id to the context and response, reusing the
// caller's id when one is supplied.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
