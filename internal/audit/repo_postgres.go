package audit

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo stores events in auth_audit_events. It only ever INSERTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if r.db == nil {
		return errors.New("audit: db not configured")
	}
	const q = `
INSERT INTO auth_audit_events (id, type, mode, subject, reason, ip_address, request_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.Mode,
		e.Subject,
		e.Reason,
		e.IPAddress,
		e.RequestID,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	if r.db == nil {
		return nil, errors.New("audit: db not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, type, mode, subject, COALESCE(reason, ''), COALESCE(ip_address, ''), COALESCE(request_id, ''), created_at
FROM auth_audit_events
ORDER BY created_at DESC
LIMIT $1
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.Mode,
			&e.Subject,
			&e.Reason,
			&e.IPAddress,
			&e.RequestID,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
