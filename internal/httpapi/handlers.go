package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"learning-portal/internal/audit"
	"learning-portal/internal/auth"
	"learning-portal/internal/profile"
	"learning-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProfileService is the subset of profile.Service the handlers need.
type ProfileService interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
	Update(ctx context.Context, userID string, req profile.UpdateRequest) (profile.Profile, error)
}

// AuditReader lists recent security events.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: read identity from context, call internal services, return JSON.
type Handlers struct {
	Profiles ProfileService
	Audit    AuditReader
}

// Session reports who the caller is, if anyone. Mounted behind auth.OptionalIdentity.
func (h Handlers) Session(c *gin.Context) {
	id := auth.IdentityFromContext(c.Request.Context())
	if id == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user_id":       id.Subject,
		"email":         id.Email,
		"role":          id.Role,
		"tier":          id.Tier,
	})
}

// Me returns the caller's identity and stored profile. Mounted behind auth.RequireIdentity.
func (h Handlers) Me(c *gin.Context) {
	id := auth.IdentityFromContext(c.Request.Context())
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingCredential.Error()})
		return
	}
	resp := gin.H{"identity": id, "profile": nil}

	if h.Profiles != nil {
		p, err := h.Profiles.Get(c.Request.Context(), id.Subject)
		switch {
		case err == nil:
			resp["profile"] = p
		case errors.Is(err, profile.ErrNotFound):
		default:
			logger.FromGin(c).Error("profile lookup failed", "user_id", id.Subject, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateProfile changes the caller's profile.
// Tier: verified only (rbac.RequireVerified).
func (h Handlers) UpdateProfile(c *gin.Context) {
	if h.Profiles == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profiles not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingCredential.Error()})
		return
	}

	var req profile.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	p, err := h.Profiles.Update(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, profile.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
			return
		}
		logger.FromGin(c).Error("profile update failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// RecentAuditEvents lists security events for operators.
// RBAC: admin, verified tier.
func (h Handlers) RecentAuditEvents(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be 1..1000"})
			return
		}
		limit = n
	}
	evs, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("audit read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}
