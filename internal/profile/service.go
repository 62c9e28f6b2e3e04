package profile

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const maxDisplayNameLen = 80

// Repository is the persistence contract for profiles.
type Repository interface {
	Get(ctx context.Context, userID string) (Profile, error)
	// Upsert applies fn to the current profile (zero value with UserID set when missing)
	// and stores the result atomically.
	Upsert(ctx context.Context, userID string, now time.Time, fn func(p *Profile) error) (Profile, error)
}

type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Get returns the stored profile or ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrInvalidArgument
	}
	if req.DisplayName == nil && req.AvatarURL == nil {
		return Profile{}, ErrInvalidArgument
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayNameLen {
			return Profile{}, ErrInvalidArgument
		}
		req.DisplayName = &name
	}
	if req.AvatarURL != nil {
		u := strings.TrimSpace(*req.AvatarURL)
		if u != "" && !validAvatarURL(u) {
			return Profile{}, ErrInvalidArgument
		}
		req.AvatarURL = &u
	}

	now := s.clock().UTC()
	return s.repo.Upsert(ctx, userID, now, func(p *Profile) error {
		if req.DisplayName != nil {
			p.DisplayName = *req.DisplayName
		}
		if req.AvatarURL != nil {
			p.AvatarURL = *req.AvatarURL
		}
		return nil
	})
}

func validAvatarURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
