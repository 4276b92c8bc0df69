package middleware

import (
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestId"
	loggerKey    = "logger"
)

// RequestLogger tags each request with an id and a scoped logger, then logs
// the outcome once the handler chain returns.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		ctxLogger := logger.With(zap.String("request_id", requestID))
		c.Set(loggerKey, ctxLogger)

		c.Next()

		if scoped, ok := loggerFrom(c); ok {
			ctxLogger = scoped
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			ctxLogger.Error("HTTP Request", fields...)
		case c.Writer.Status() >= 400:
			ctxLogger.Warn("HTTP Request", fields...)
		default:
			ctxLogger.Info("HTTP Request", fields...)
		}
	}
}

// GetLogger returns the request-scoped logger, falling back to the global one.
func GetLogger(c *gin.Context) *zap.Logger {
	if logger, ok := loggerFrom(c); ok {
		return logger
	}
	return zap.L()
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func loggerFrom(c *gin.Context) (*zap.Logger, bool) {
	value, exists := c.Get(loggerKey)
	if !exists {
		return nil, false
	}
	logger, ok := value.(*zap.Logger)
	return logger, ok
}

func userFields(user *models.UserContext) []zap.Field {
	return []zap.Field{
		zap.String("user_id", user.UserID),
		zap.String("tenant_id", user.TenantID),
	}
}
