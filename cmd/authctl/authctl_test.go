package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tok(payload string) string {
	return "h." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".s"
}

func TestDecode(t *testing.T) {
	out, err := run(t, "decode", tok(`{"sub":"u1","email":"u1@example.com","exp":9999999999}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "subject:  u1") || !strings.Contains(out, "u1@example.com") {
		t.Fatalf("unexpected output: %s", out)
	}

	if _, err := run(t, "decode", "garbage"); err == nil {
		t.Fatalf("expected error for garbage token")
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+tok(`{"sub":"u1","exp":9999999999}`) {
			_, _ = w.Write([]byte(`{"id":"u1"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	out, err := run(t, "resolve", "--identity-url", srv.URL, tok(`{"sub":"u1","exp":9999999999}`))
	if err != nil || !strings.Contains(out, "u1 (verified)") {
		t.Fatalf("expected verified u1, got %q %v", out, err)
	}

	out, err = run(t, "resolve", "--identity-url", srv.URL, tok(`{"sub":"u2","exp":9999999999}`))
	if err == nil || !strings.Contains(out, "invalid_credential") {
		t.Fatalf("expected invalid_credential, got %q %v", out, err)
	}

	out, err = run(t, "resolve", "--optional", "--identity-url", srv.URL, "garbage")
	if err != nil || !strings.Contains(out, "anonymous") {
		t.Fatalf("expected anonymous, got %q %v", out, err)
	}
}
