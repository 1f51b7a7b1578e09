package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/pkg/logger"
)

// Recovery middleware recovers from panics and logs the error with the
// request's tracing context
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(c)

				attrs := []any{
					"error", err,
					"request_id", requestID,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				}
				attrs = append(attrs, contextAttrs(c)...)
				attrs = append(attrs, "stack", string(debug.Stack()))

				slog.Error("panic recovered", attrs...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "Internal server error",
					"request_id": requestID,
				})
			}
		}()

		c.Next()
	}
}

// contextAttrs collects the operator and contract the request was acting on,
// when the auth middleware and handlers have recorded them.
func contextAttrs(c *gin.Context) []any {
	var attrs []any
	ctx := c.Request.Context()
	if username, ok := ctx.Value(logger.UsernameKey).(string); ok && username != "" {
		attrs = append(attrs, "username", username)
	}
	if contractID, ok := ctx.Value(logger.ContractKey).(string); ok && contractID != "" {
		attrs = append(attrs, "contract_id", contractID)
	}
	return attrs
}
