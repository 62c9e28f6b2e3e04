package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learning-portal/pkg/logger"
	"learning-portal/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	defaultInflightKey = "auth:verify:inflight"
	defaultSlotTTL     = 30 * time.Second
)

// ErrVerifierSaturated is wrapped in a transport failure when the in-flight cap is reached.
var ErrVerifierSaturated = errors.New("too many verifications in flight")

// CappedVerifier bounds the number of provider calls in flight across all instances.
// When no slot is available the provider is not called and the caller degrades as it
// would for an unreachable provider.
type CappedVerifier struct {
	inner Verifier
	rdb   *redis.Client
	key   string
	limit int
	ttl   time.Duration
}

type CapConfig struct {
	Limit int
	Key   string
	// SlotTTL bounds how long a crashed instance can hold slots.
	SlotTTL time.Duration
}

func NewCappedVerifier(inner Verifier, rdb *redis.Client, cfg CapConfig) (*CappedVerifier, error) {
	if inner == nil {
		return nil, errors.New("auth: inner verifier is required")
	}
	if rdb == nil {
		return nil, errors.New("auth: redis client is required")
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("auth: cap limit must be > 0, got %d", cfg.Limit)
	}
	if cfg.Key == "" {
		cfg.Key = defaultInflightKey
	}
	if cfg.SlotTTL <= 0 {
		cfg.SlotTTL = defaultSlotTTL
	}
	return &CappedVerifier{inner: inner, rdb: rdb, key: cfg.Key, limit: cfg.Limit, ttl: cfg.SlotTTL}, nil
}

func (v *CappedVerifier) Verify(ctx context.Context, token string) (VerifiedIdentity, error) {
	ok, err := utils.AcquireConcurrencyCap(ctx, v.rdb, v.key, v.limit, v.ttl)
	if err != nil {
		return VerifiedIdentity{}, transportFailure(0, fmt.Errorf("acquire verification slot: %w", err))
	}
	if !ok {
		return VerifiedIdentity{}, transportFailure(0, ErrVerifierSaturated)
	}
	defer func() {
		// Release even when ctx was cancelled by the resolver's deadline.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := utils.ReleaseConcurrencyCap(relCtx, v.rdb, v.key); err != nil {
			logger.From(ctx).Warn("release verification slot failed", "err", err)
		}
	}()

	return v.inner.Verify(ctx, token)
}
