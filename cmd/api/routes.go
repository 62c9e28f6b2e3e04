package main

import (
	"learning-portal/internal/auth"
	"learning-portal/internal/httpapi"
	"learning-portal/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, resolver *auth.Resolver, h httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Anonymous-friendly routes: identity is advisory.
	optional := v1.Group("")
	optional.Use(auth.OptionalIdentity(resolver))
	{
		optional.GET("/session", h.Session)
	}

	// Signed-in routes: 401 before any handler when no identity can be established.
	protected := v1.Group("")
	protected.Use(auth.RequireIdentity(resolver))
	{
		protected.GET("/me", h.Me)

		// Mutations require a provider-confirmed identity, not a degraded one.
		protected.PUT("/me/profile", rbac.RequireVerified(), h.UpdateProfile)

		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/audit", h.RecentAuditEvents)
		}
	}
}
