package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"learning-portal/internal/auth"

	"github.com/gin-gonic/gin"
)

func withIdentity(id *auth.ResolvedIdentity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), id, "tok")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(t *testing.T, handlers ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	id := &auth.ResolvedIdentity{Subject: "u", Role: RoleAdmin, Tier: auth.TierVerified}
	if code := serve(t, withIdentity(id), RequireAnyRole(RoleEditor)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_ClaimedRoleNotTrusted(t *testing.T) {
	id := &auth.ResolvedIdentity{Subject: "u", Role: RoleAdmin, Tier: auth.TierClaimed}
	if code := serve(t, withIdentity(id), RequireAnyRole(RoleAdmin)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_RoleNotAllowed(t *testing.T) {
	id := &auth.ResolvedIdentity{Subject: "u", Role: RoleAuthenticated, Tier: auth.TierVerified}
	if code := serve(t, withIdentity(id), RequireAnyRole(RoleEditor)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_AnonymousUnauthorized(t *testing.T) {
	if code := serve(t, withIdentity(nil), RequireAnyRole(RoleEditor)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireVerified(t *testing.T) {
	verified := &auth.ResolvedIdentity{Subject: "u", Tier: auth.TierVerified}
	claimed := &auth.ResolvedIdentity{Subject: "u", Tier: auth.TierClaimed}

	if code := serve(t, withIdentity(verified), RequireVerified()); code != 200 {
		t.Fatalf("verified: expected 200, got %d", code)
	}
	if code := serve(t, withIdentity(claimed), RequireVerified()); code != 403 {
		t.Fatalf("claimed: expected 403, got %d", code)
	}
	if code := serve(t, withIdentity(nil), RequireVerified()); code != 401 {
		t.Fatalf("anonymous: expected 401, got %d", code)
	}
}

func TestRequireIdentity(t *testing.T) {
	if code := serve(t, withIdentity(nil), RequireIdentity()); code != 401 {
		t.Fatalf("anonymous: expected 401, got %d", code)
	}
	claimed := &auth.ResolvedIdentity{Subject: "u", Tier: auth.TierClaimed}
	if code := serve(t, withIdentity(claimed), RequireIdentity()); code != 200 {
		t.Fatalf("claimed: expected 200, got %d", code)
	}
}

func TestPolicies_WithoutGateFailLoudly(t *testing.T) {
	for name, h := range map[string]gin.HandlerFunc{
		"identity": RequireIdentity(),
		"verified": RequireVerified(),
		"role":     RequireAnyRole(RoleAdmin),
	} {
		if code := serve(t, h); code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500 without a gate, got %d", name, code)
		}
	}
}
