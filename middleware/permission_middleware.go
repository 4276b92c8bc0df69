package middleware

import (
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RoleAdmin       = "admin"
	RoleTenantAdmin = "tenant_admin"
)

// RequireRole lets the request through when the caller holds any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserContext(c)
		if !ok {
			utils.UnauthorizedResponse(c, "User context not found")
			return
		}

		if !user.HasRole(roles...) {
			GetLogger(c).Warn("Insufficient privileges",
				zap.Strings("required", roles),
				zap.Strings("roles", user.Roles),
			)
			utils.ForbiddenResponse(c, "Insufficient privileges")
			return
		}

		c.Next()
	}
}
