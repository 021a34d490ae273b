package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imagegallery/internal/pkg/response"
)

const HeaderRequestID = "X-Request-ID"

// RequestID echoes an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestID(c)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// ErrorLogger logs every request, the errors handlers attached via c.Error,
// and recovers from panics.
func ErrorLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
				logger.Error("panic recovered",
					append(requestAttrs(c, start), "error", err.Error(), "stack", string(debug.Stack()))...)
				return
			}

			for _, e := range c.Errors {
				logger.Error("request error", append(requestAttrs(c, start), "error", e.Error())...)
			}

			status := c.Writer.Status()
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("request", requestAttrs(c, start)...)
			case status >= http.StatusBadRequest:
				logger.Warn("request", requestAttrs(c, start)...)
			default:
				logger.Info("request", requestAttrs(c, start)...)
			}
		}()

		c.Next()
	}
}

func requestAttrs(c *gin.Context, start time.Time) []any {
	userID, _ := UserID(c)
	return []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start),
		"client_ip", c.ClientIP(),
		"user_id", userID,
		"request_id", c.GetString("request_id"),
	}
}

func requestID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderRequestID))
}
