package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Bearer":           "",
		"Bearer ":          "",
		"Basic abc":        "",
		"Bearer abc":       "abc",
		"bearer abc":       "abc",
		"  Bearer  abc  ":  "abc",
		"Bearer abc def":   "",
		"Bearerabc":        "",
		"Token Bearer abc": "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

type gateResult struct {
	code      int
	reason    string
	reached   bool
	identity  *ResolvedIdentity
	token     string
	hasToken  bool
	resolved  bool
	ginUserID string
}

func runGate(t *testing.T, gate gin.HandlerFunc, header string) gateResult {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var res gateResult
	r := gin.New()
	r.GET("/x", gate, func(c *gin.Context) {
		res.reached = true
		res.identity = IdentityFromContext(c.Request.Context())
		res.token, res.hasToken = TokenFromContext(c.Request.Context())
		res.resolved = Resolved(c.Request.Context())
		res.ginUserID = c.GetString(KeyUserID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)

	res.code = w.Code
	if w.Code == http.StatusUnauthorized {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		res.reason = body.Error
	}
	return res
}

func TestRequireIdentity_MissingCredential(t *testing.T) {
	r := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil), nil)

	for _, h := range []string{"", "Basic dXNlcjpwYXNz", "Bearer"} {
		res := runGate(t, RequireIdentity(r), h)
		if res.code != http.StatusUnauthorized || res.reason != "missing_credential" {
			t.Fatalf("header %q: expected 401 missing_credential, got %d %q", h, res.code, res.reason)
		}
		if res.reached {
			t.Fatalf("downstream handler must not run")
		}
	}
}

func TestRequireIdentity_InvalidCredentialIsUniform(t *testing.T) {
	expired := rawToken(`{"sub":"u1","exp":1}`)
	rejecting := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{}, rejected(401, errors.New("no"))), nil)
	accepting := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil), nil)

	cases := []struct {
		name string
		r    *Resolver
		tok  string
	}{
		{"malformed", accepting, "not-a-token"},
		{"expired", accepting, expired},
		{"provider rejected", rejecting, scenarioToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runGate(t, RequireIdentity(tc.r), "Bearer "+tc.tok)
			if res.code != http.StatusUnauthorized || res.reason != "invalid_credential" {
				t.Fatalf("expected 401 invalid_credential, got %d %q", res.code, res.reason)
			}
			if res.reached {
				t.Fatalf("downstream handler must not run")
			}
		})
	}
}

func TestRequireIdentity_AttachesVerifiedIdentity(t *testing.T) {
	r := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{ID: "u1", Email: "u1@example.com"}, nil), nil)

	res := runGate(t, RequireIdentity(r), "Bearer "+scenarioToken)
	if res.code != http.StatusOK || !res.reached {
		t.Fatalf("expected handler to run, got %d", res.code)
	}
	if res.identity == nil || res.identity.Subject != "u1" || res.identity.Tier != TierVerified {
		t.Fatalf("unexpected identity %+v", res.identity)
	}
	if !res.hasToken || res.token != scenarioToken {
		t.Fatalf("expected raw token pass-through")
	}
	if res.ginUserID != "u1" {
		t.Fatalf("expected gin user_id, got %q", res.ginUserID)
	}
}

func TestRequireIdentity_SlowProviderDegrades(t *testing.T) {
	r := newTestResolver(t, silentVerifier(nil), nil)

	start := time.Now()
	res := runGate(t, RequireIdentity(r), "Bearer "+scenarioToken)
	if res.code != http.StatusOK {
		t.Fatalf("slow provider must not reject, got %d", res.code)
	}
	if res.identity == nil || res.identity.Tier != TierClaimed {
		t.Fatalf("expected claimed identity, got %+v", res.identity)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatalf("gate returned before the required deadline")
	}
}

func TestOptionalIdentity_AnonymousProceeds(t *testing.T) {
	r := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil), nil)

	for _, h := range []string{"", "Bearer garbage"} {
		res := runGate(t, OptionalIdentity(r), h)
		if res.code != http.StatusOK || !res.reached {
			t.Fatalf("header %q: expected handler to run, got %d", h, res.code)
		}
		if res.identity != nil {
			t.Fatalf("header %q: expected anonymous, got %+v", h, res.identity)
		}
		if res.hasToken {
			t.Fatalf("header %q: anonymous requests carry no token", h)
		}
		if !res.resolved {
			t.Fatalf("header %q: expected gate marker", h)
		}
	}
}

func TestOptionalIdentity_RejectionDegrades(t *testing.T) {
	r := newTestResolver(t, delayedVerifier(0, VerifiedIdentity{}, rejected(401, errors.New("no"))), nil)

	res := runGate(t, OptionalIdentity(r), "Bearer "+scenarioToken)
	if res.code != http.StatusOK {
		t.Fatalf("optional mode never rejects, got %d", res.code)
	}
	if res.identity == nil || res.identity.Tier != TierClaimed || res.identity.Subject != "u1" {
		t.Fatalf("expected claimed u1, got %+v", res.identity)
	}
}

func TestRequireIdentity_OuterDeadlineIsNotSilent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	res := newTestResolver(t, silentVerifier(nil), nil)

	reached := false
	r := gin.New()
	r.GET("/x", RequireIdentity(res), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+scenarioToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the request context ends first, got %d", w.Code)
	}
	if reached {
		t.Fatalf("downstream handler must not run")
	}
}
