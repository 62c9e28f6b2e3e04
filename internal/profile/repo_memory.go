package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps profiles in process. Used in tests and when no database is configured.
type MemoryRepo struct {
	mu       sync.Mutex
	profiles map[string]Profile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{profiles: map[string]Profile{}}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, userID string, now time.Time, fn func(p *Profile) error) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		p = Profile{UserID: userID, CreatedAt: now}
	}
	if err := fn(&p); err != nil {
		return Profile{}, err
	}
	p.UpdatedAt = now
	r.profiles[userID] = p
	return p, nil
}
