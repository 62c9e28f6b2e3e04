package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxIdentity ctxKey = iota
	ctxToken
	ctxResolved
)

// WithIdentity attaches the resolution result and the raw token to ctx.
// A nil identity records an anonymous request.
func WithIdentity(ctx context.Context, id *ResolvedIdentity, token string) context.Context {
	ctx = context.WithValue(ctx, ctxResolved, true)
	if id != nil {
		cp := *id
		ctx = context.WithValue(ctx, ctxIdentity, &cp)
	}
	if token != "" {
		ctx = context.WithValue(ctx, ctxToken, token)
	}
	return ctx
}

// IdentityFromContext returns the resolved identity, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *ResolvedIdentity {
	id, _ := ctx.Value(ctxIdentity).(*ResolvedIdentity)
	return id
}

// Resolved reports whether a gate ran for this request, regardless of its result.
// Downstream policies use it to tell anonymous requests from unguarded routes.
func Resolved(ctx context.Context) bool {
	ok, _ := ctx.Value(ctxResolved).(bool)
	return ok
}

// TokenFromContext returns the raw bearer token for pass-through to collaborators.
func TokenFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxToken).(string)
	return s, ok && s != ""
}

func UserID(ctx context.Context) (string, error) {
	if id := IdentityFromContext(ctx); id != nil && id.Subject != "" {
		return id.Subject, nil
	}
	return "", errors.New("user_id not in context")
}
