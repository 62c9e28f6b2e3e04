package profile

import "time"

// Profile is the portal's own record for an identity subject.
// The identity provider stays authoritative for email and role; a profile only carries
// portal presentation fields.
//
// Storage (Postgres):
//
//	CREATE TABLE profiles (
//	  user_id      text PRIMARY KEY,
//	  display_name text NOT NULL DEFAULT '',
//	  avatar_url   text NOT NULL DEFAULT '',
//	  created_at   timestamptz NOT NULL,
//	  updated_at   timestamptz NOT NULL
//	);
type Profile struct {
	UserID      string    `json:"user_id" db:"user_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}
