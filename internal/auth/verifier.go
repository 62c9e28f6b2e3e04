package auth

import (
	"context"
	"errors"
	"fmt"
)

// VerifiedIdentity is the identity provider's authoritative record for a token's subject.
type VerifiedIdentity struct {
	ID    string
	Email string
	Role  string

	// Raw holds the provider-specific fields of the user record.
	Raw map[string]any
}

// Verifier confirms a bearer token with the identity provider.
// Implementations must honor ctx cancellation and return a *VerificationError on failure.
type Verifier interface {
	Verify(ctx context.Context, token string) (VerifiedIdentity, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (VerifiedIdentity, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (VerifiedIdentity, error) {
	return f(ctx, token)
}

type FailureKind string

const (
	// FailureRejected means the provider answered and refused the token.
	FailureRejected FailureKind = "rejected"
	// FailureTransport means no authoritative answer was obtained.
	FailureTransport FailureKind = "transport"
)

// VerificationError is returned by verifiers. Only FailureRejected is authoritative.
type VerificationError struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("verification %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("verification %s: %v", e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func rejected(status int, err error) error {
	return &VerificationError{Kind: FailureRejected, Status: status, Err: err}
}

func transportFailure(status int, err error) error {
	return &VerificationError{Kind: FailureTransport, Status: status, Err: err}
}

// IsRejection reports whether err is an explicit rejection by the provider.
func IsRejection(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve) && ve.Kind == FailureRejected
}

// IsTransportFailure reports whether err means the provider could not give an answer.
// Errors that are not a *VerificationError are treated as transport failures.
func IsTransportFailure(err error) bool {
	return err != nil && !IsRejection(err)
}
