package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"learning-portal/pkg/utils"
)

// PostgresRepo stores profiles in the profiles table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const q = `
SELECT user_id, display_name, avatar_url, created_at, updated_at
FROM profiles
WHERE user_id = $1
`
	var p Profile
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, userID string, now time.Time, fn func(p *Profile) error) (Profile, error) {
	var out Profile
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Create the row first so the lock below always has something to hold.
		const ensure = `
INSERT INTO profiles (user_id, display_name, avatar_url, created_at, updated_at)
VALUES ($1, '', '', $2, $2)
ON CONFLICT (user_id) DO NOTHING
`
		if _, err := tx.ExecContext(ctx, ensure, userID, now); err != nil {
			return err
		}

		p, err := lockProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		p.UpdatedAt = now

		const upd = `
UPDATE profiles
SET display_name = $2, avatar_url = $3, updated_at = $4
WHERE user_id = $1
`
		if _, err := tx.ExecContext(ctx, upd, p.UserID, p.DisplayName, p.AvatarURL, p.UpdatedAt); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Profile{}, err
	}
	return out, nil
}

func lockProfile(ctx context.Context, tx *sql.Tx, userID string) (Profile, error) {
	const q = `
SELECT user_id, display_name, avatar_url, created_at, updated_at
FROM profiles
WHERE user_id = $1
FOR UPDATE
`
	var p Profile
	if err := tx.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}
