// util/http_util.go
package util

import (
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func RespondWithError(c *gin.Context, code int, message string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", code),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	}
	if code >= 500 {
		logger.Error(message, fields...)
	} else {
		logger.Warn(message, fields...)
	}

	body := ErrorResponse{Error: message, CorrelationID: c.GetString(CorrelationIDKey)}
	if err != nil && code < 500 {
		body.Details = err.Error()
	}
	c.AbortWithStatusJSON(code, body)
}

// Context keys set by the middleware
const (
	CorrelationIDKey = "correlationID"
	PrincipalKey     = "principal"
)
