package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultUserPath  = "/auth/v1/user"
	maxUserBodyBytes = 1 << 20
)

// HTTPVerifier asks the hosted identity provider for the user record behind a token.
// The provider answers 2xx with the user, 4xx when the token is not accepted.
type HTTPVerifier struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type HTTPVerifierConfig struct {
	BaseURL  string
	UserPath string
	APIKey   string

	// Client defaults to a client without its own timeout; deadlines come from ctx.
	Client *http.Client
}

func NewHTTPVerifier(cfg HTTPVerifierConfig) (*HTTPVerifier, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity provider url is required")
	}
	path := strings.TrimSpace(cfg.UserPath)
	if path == "" {
		path = defaultUserPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPVerifier{
		client:   client,
		endpoint: base + path,
		apiKey:   cfg.APIKey,
	}, nil
}

type providerUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (VerifiedIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return VerifiedIdentity{}, transportFailure(0, err)
	}
	req.Header.Set("Authorization", bearerPrefix+token)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifiedIdentity{}, transportFailure(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserBodyBytes))
	if err != nil {
		return VerifiedIdentity{}, transportFailure(resp.StatusCode, err)
	}

	switch {
	case isRejectionStatus(resp.StatusCode):
		return VerifiedIdentity{}, rejected(resp.StatusCode, errors.New("token not accepted by identity provider"))
	case resp.StatusCode >= 500:
		return VerifiedIdentity{}, transportFailure(resp.StatusCode, errors.New("identity provider unavailable"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return VerifiedIdentity{}, transportFailure(resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var u providerUser
	if err := json.Unmarshal(body, &u); err != nil {
		return VerifiedIdentity{}, transportFailure(resp.StatusCode, fmt.Errorf("decode user: %w", err))
	}
	if strings.TrimSpace(u.ID) == "" {
		return VerifiedIdentity{}, transportFailure(resp.StatusCode, errors.New("user record without id"))
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return VerifiedIdentity{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
		Raw:   raw,
	}, nil
}

// isRejectionStatus lists the statuses where the provider has judged the token itself.
// 404, 408, 429 and the rest say nothing about the token and degrade instead.
func isRejectionStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}
