package rbac

import (
	"net/http"

	"learning-portal/internal/auth"
	"learning-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// identity returns the gate's result. A policy mounted without an identity gate in
// front of it is a routing bug, answered with 500 rather than read as anonymous.
func identity(c *gin.Context) (*auth.ResolvedIdentity, bool) {
	ctx := c.Request.Context()
	if !auth.Resolved(ctx) {
		logger.FromGin(c).Error("rbac policy without identity gate", "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity_gate_missing"})
		return nil, false
	}
	return auth.IdentityFromContext(ctx), true
}

// RequireIdentity rejects anonymous requests. Use after auth.OptionalIdentity on routes
// that mix anonymous and signed-in handlers.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingCredential.Error()})
			return
		}
		c.Next()
	}
}

// RequireVerified only admits identities confirmed by the identity provider.
// Sensitive mutations opt into this; a degraded (claimed) identity gets 403.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingCredential.Error()})
			return
		}
		if !id.IsVerified() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "verified_identity_required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - roles are only trusted on verified identities; claimed roles were never signature checked
// - admin bypasses all checks
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			return
		}
		if id == nil || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !id.IsVerified() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "verified_identity_required"})
			return
		}

		if IsAdmin(id.Role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[id.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
