package audit

import (
	"context"

	"github.com/gin-gonic/gin"
)

// clientIPKey is an unexported context key for passing client IP through internal layers.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	v := ctx.Value(clientIPKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// CaptureClientIP resolves the client IP through gin (trusted proxies apply) and stores it
// in the request context so the audit recorder can see it.
func CaptureClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
