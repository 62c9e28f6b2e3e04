package auth

import (
	"errors"
	"net/http"
	"strings"

	"learning-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Gin context keys set by the gates for handler convenience.
const (
	KeyUserID = "user_id"
	KeyTier   = "trust_tier"
)

// BearerToken extracts the token from an Authorization header value.
// Absent or malformed headers yield "" and are treated as no credential.
func BearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	tok := strings.TrimSpace(raw[len(bearerPrefix):])
	if strings.ContainsAny(tok, " \t") {
		return ""
	}
	return tok
}

// RequireIdentity rejects the request with 401 unless an identity can be established.
// It does not perform RBAC or tier checks; those belong to internal/rbac.
func RequireIdentity(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c.GetHeader(authorizationHeader))

		id, err := r.ResolveRequired(c.Request.Context(), tok)
		if err != nil {
			switch {
			case errors.Is(err, ErrMissingCredential):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMissingCredential.Error()})
			case errors.Is(err, ErrInvalidCredential):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredential.Error()})
			default:
				// The request context ended first: a client disconnect or an outer deadline.
				// Nothing was decided about the credential, so this is not a 401.
				logger.FromGin(c).Debug("auth gate aborted", "err", err)
				c.AbortWithStatus(http.StatusServiceUnavailable)
			}
			return
		}

		attach(c, id, tok)
		c.Next()
	}
}

// OptionalIdentity attaches an identity when one can be established and never rejects.
// Handlers must treat a nil identity as anonymous.
func OptionalIdentity(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := BearerToken(c.GetHeader(authorizationHeader))
		id := r.ResolveOptional(c.Request.Context(), tok)
		if id == nil {
			tok = ""
		}
		attach(c, id, tok)
		c.Next()
	}
}

func attach(c *gin.Context, id *ResolvedIdentity, tok string) {
	ctx := WithIdentity(c.Request.Context(), id, tok)
	c.Request = c.Request.WithContext(ctx)

	if id != nil {
		c.Set(KeyUserID, id.Subject)
		c.Set(KeyTier, string(id.Tier))
	}
}
