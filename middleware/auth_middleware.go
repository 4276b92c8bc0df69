package middleware

import (
	"strings"

	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"github.com/gin-gonic/gin"
)

const userContextKey = "userContext"

func AuthMiddleware(jwtSecret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			return
		}

		claims, err := utils.VerifyJWTTokenWithSecret(token, jwtSecret, issuer)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			return
		}

		user := claims.UserContext()
		c.Set(userContextKey, user)
		if logger, ok := loggerFrom(c); ok {
			c.Set(loggerKey, logger.With(userFields(user)...))
		}

		c.Next()
	}
}

// GetUserContext returns the identity set by AuthMiddleware.
func GetUserContext(c *gin.Context) (*models.UserContext, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.UserContext)
	return user, ok && user != nil
}

// SetUserContext is used by tests and internal callers that authenticate
// by other means.
func SetUserContext(c *gin.Context, user *models.UserContext) {
	c.Set(userContextKey, user)
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}
