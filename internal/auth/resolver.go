package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learning-portal/pkg/logger"
)

// Tier says how an identity was established.
type Tier string

const (
	// TierVerified identities were confirmed by the identity provider.
	TierVerified Tier = "verified"
	// TierClaimed identities were decoded locally; their signature was never checked.
	TierClaimed Tier = "claimed"
)

// ResolvedIdentity is what downstream handlers consume. A nil *ResolvedIdentity means anonymous.
type ResolvedIdentity struct {
	Subject string `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	Tier    Tier   `json:"tier"`
}

func (i *ResolvedIdentity) IsVerified() bool {
	return i != nil && i.Tier == TierVerified
}

var (
	ErrMissingCredential = errors.New("missing_credential")
	ErrInvalidCredential = errors.New("invalid_credential")
)

const (
	DefaultRequiredTimeout = 5 * time.Second
	DefaultOptionalTimeout = 3 * time.Second
)

type Mode string

const (
	ModeRequired Mode = "required"
	ModeOptional Mode = "optional"
)

// Outcome names the non-success results of a verification race.
type Outcome string

const (
	OutcomeRejected  Outcome = "credential_rejected"
	OutcomeTimeout   Outcome = "verification_timeout"
	OutcomeTransport Outcome = "verification_transport_failure"
)

// ResolutionEvent describes a verification that did not end in a verified identity.
type ResolutionEvent struct {
	Mode    Mode
	Outcome Outcome
	Subject string
	Err     error
}

// Recorder receives resolution events. Implementations must not block.
type Recorder interface {
	RecordResolution(ctx context.Context, ev ResolutionEvent)
}

type ResolverOptions struct {
	RequiredTimeout time.Duration
	OptionalTimeout time.Duration
	Recorder        Recorder

	// Clock is injectable for deterministic expiry checks.
	Clock func() time.Time
}

// Resolver turns bearer tokens into identities. It holds no per-request state and is safe
// for concurrent use.
type Resolver struct {
	verifier        Verifier
	requiredTimeout time.Duration
	optionalTimeout time.Duration
	recorder        Recorder
	clock           func() time.Time
}

func NewResolver(v Verifier, opts ResolverOptions) (*Resolver, error) {
	if v == nil {
		return nil, errors.New("auth: verifier is required")
	}
	r := &Resolver{
		verifier:        v,
		requiredTimeout: opts.RequiredTimeout,
		optionalTimeout: opts.OptionalTimeout,
		recorder:        opts.Recorder,
		clock:           opts.Clock,
	}
	if r.requiredTimeout <= 0 {
		r.requiredTimeout = DefaultRequiredTimeout
	}
	if r.optionalTimeout <= 0 {
		r.optionalTimeout = DefaultOptionalTimeout
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r, nil
}

// ResolveRequired establishes an identity or fails with ErrMissingCredential or
// ErrInvalidCredential. A slow or unreachable provider degrades the result to TierClaimed.
// The only other error is the cancellation of ctx itself.
func (r *Resolver) ResolveRequired(ctx context.Context, token string) (*ResolvedIdentity, error) {
	return r.ResolveRequiredWithin(ctx, token, r.requiredTimeout)
}

func (r *Resolver) ResolveRequiredWithin(ctx context.Context, token string, timeout time.Duration) (*ResolvedIdentity, error) {
	if timeout <= 0 {
		timeout = r.requiredTimeout
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredential
	}
	claims, ok := DecodeClaims(token, r.clock())
	if !ok {
		return nil, ErrInvalidCredential
	}

	verified, outcome, err := r.race(ctx, token, timeout)
	switch outcome {
	case raceVerified:
		return fromVerified(verified), nil
	case raceRejected:
		r.report(ctx, ModeRequired, OutcomeRejected, claims.Subject, err)
		return nil, ErrInvalidCredential
	case raceCanceled:
		logger.From(ctx).Debug("identity resolution abandoned", "mode", ModeRequired, "err", err)
		return nil, fmt.Errorf("resolve identity: %w", err)
	case raceTimeout:
		r.report(ctx, ModeRequired, OutcomeTimeout, claims.Subject, err)
	default:
		r.report(ctx, ModeRequired, OutcomeTransport, claims.Subject, err)
	}
	return fromClaims(claims), nil
}

// ResolveOptional never fails: it returns nil for anonymous requests and otherwise the best
// identity it could establish.
func (r *Resolver) ResolveOptional(ctx context.Context, token string) *ResolvedIdentity {
	return r.ResolveOptionalWithin(ctx, token, r.optionalTimeout)
}

func (r *Resolver) ResolveOptionalWithin(ctx context.Context, token string, timeout time.Duration) *ResolvedIdentity {
	if timeout <= 0 {
		timeout = r.optionalTimeout
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	claims, ok := DecodeClaims(token, r.clock())
	if !ok {
		return nil
	}

	verified, outcome, err := r.race(ctx, token, timeout)
	switch outcome {
	case raceVerified:
		return fromVerified(verified)
	case raceRejected:
		r.report(ctx, ModeOptional, OutcomeRejected, claims.Subject, err)
	case raceCanceled:
		logger.From(ctx).Debug("identity resolution abandoned", "mode", ModeOptional, "err", err)
	case raceTimeout:
		r.report(ctx, ModeOptional, OutcomeTimeout, claims.Subject, err)
	default:
		r.report(ctx, ModeOptional, OutcomeTransport, claims.Subject, err)
	}
	return fromClaims(claims)
}

type raceResult int

const (
	raceVerified raceResult = iota
	raceRejected
	raceTimeout
	raceTransport
	raceCanceled
)

type verifyResult struct {
	identity VerifiedIdentity
	err      error
}

// race runs the verifier against a deadline timer. The verifier's context is cancelled as
// soon as race returns, and its late result lands in a buffered channel nobody reads.
func (r *Resolver) race(ctx context.Context, token string, timeout time.Duration) (VerifiedIdentity, raceResult, error) {
	vctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan verifyResult, 1)
	go func() {
		id, err := r.verifier.Verify(vctx, token)
		done <- verifyResult{identity: id, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		switch {
		case res.err == nil && strings.TrimSpace(res.identity.ID) != "":
			return res.identity, raceVerified, nil
		case res.err == nil:
			return VerifiedIdentity{}, raceTransport, errors.New("verifier returned identity without id")
		case IsRejection(res.err):
			return VerifiedIdentity{}, raceRejected, res.err
		case ctx.Err() != nil:
			return VerifiedIdentity{}, raceCanceled, ctx.Err()
		default:
			return VerifiedIdentity{}, raceTransport, res.err
		}
	case <-timer.C:
		return VerifiedIdentity{}, raceTimeout, fmt.Errorf("verification did not complete within %s", timeout)
	case <-ctx.Done():
		return VerifiedIdentity{}, raceCanceled, ctx.Err()
	}
}

func (r *Resolver) report(ctx context.Context, mode Mode, outcome Outcome, subject string, err error) {
	log := logger.From(ctx)
	if outcome == OutcomeRejected {
		log.Info("identity provider rejected token", "mode", mode, "subject", subject, "err", err)
	} else {
		log.Warn("identity degraded to claimed tier", "mode", mode, "reason", outcome, "subject", subject, "err", err)
	}
	if r.recorder != nil {
		r.recorder.RecordResolution(ctx, ResolutionEvent{Mode: mode, Outcome: outcome, Subject: subject, Err: err})
	}
}

// fromVerified uses only provider fields; local claims are never mixed into a verified identity.
func fromVerified(v VerifiedIdentity) *ResolvedIdentity {
	return &ResolvedIdentity{
		Subject: v.ID,
		Email:   v.Email,
		Role:    v.Role,
		Tier:    TierVerified,
	}
}

func fromClaims(c Claims) *ResolvedIdentity {
	return &ResolvedIdentity{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    c.Role,
		Tier:    TierClaimed,
	}
}
