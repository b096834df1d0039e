package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(auth.ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[models.Role(role)]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOrganizer gates organizer-only endpoints. A regular role claim gets a
// 403 with needsUpgrade set so clients route the user into the upgrade flow
// instead of a generic denial. The check runs against the token claim, not the
// stored role: a user upgraded mid-session keeps hitting this until their old
// token expires or they refresh.
func RequireOrganizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get(auth.ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role := models.Role(roleVal.(string))
		if role.AtLeastOrganizer() {
			c.Next()
			return
		}
		if role == models.RoleRegular {
			response.ForbiddenNeedsUpgrade(c, "organizer account required")
		} else {
			response.Forbidden(c, "insufficient permissions")
		}
		c.Abort()
	}
}
