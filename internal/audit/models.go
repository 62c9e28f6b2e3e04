package audit

import "time"

// Event is an immutable, append-only security audit record.
//
// Invariants:
// - Events are never updated or deleted.
// - Tokens are never stored; only the locally decoded subject.
// - Recording is best-effort; do not block request flows on audit failures.
//
// Storage (Postgres):
//
//	CREATE TABLE auth_audit_events (
//	  id          uuid PRIMARY KEY,
//	  type        text NOT NULL,
//	  mode        text NOT NULL,
//	  subject     text NOT NULL,
//	  reason      text,
//	  ip_address  text,
//	  request_id  text,
//	  created_at  timestamptz NOT NULL
//	);
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the security category of the record.
	Type EventType `json:"type" db:"type"`

	// Mode is the gate mode that produced the event (required / optional).
	Mode string `json:"mode" db:"mode"`

	// Subject is the unverified subject decoded from the token.
	Subject string `json:"subject" db:"subject"`

	// Reason is a short machine-readable cause.
	Reason string `json:"reason,omitempty" db:"reason"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	RequestID string `json:"request_id,omitempty" db:"request_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeCredentialRejected: the provider explicitly refused a locally valid token.
	EventTypeCredentialRejected EventType = "credential_rejected"
	// EventTypeVerificationDegraded: the identity fell back to the claimed tier.
	EventTypeVerificationDegraded EventType = "verification_degraded"
)
