package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxActorID   = "actor_id"
	ctxActorRole = "actor_role"
)

// Middleware resolves the actor from the Authorization header and aborts
// unauthenticated requests. Every handler behind it may rely on ActorID and
// ActorRole being present.
func Middleware(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxActorID, claims.UserID)
		c.Set(ctxActorRole, claims.Role)
		c.Next()
	}
}

// RequireRoles aborts requests whose actor role is not in the allow list.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ActorRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// ActorID returns the authenticated user's id.
func ActorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxActorID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// ActorRole returns the authenticated user's role.
func ActorRole(c *gin.Context) string {
	if v, ok := c.Get(ctxActorRole); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}
