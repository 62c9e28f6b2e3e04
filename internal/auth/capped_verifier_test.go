package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNewCappedVerifier_Validates(t *testing.T) {
	_, rdb := newMiniRedis(t)
	inner := delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil)

	if _, err := NewCappedVerifier(nil, rdb, CapConfig{Limit: 1}); err == nil {
		t.Fatalf("expected error for nil inner")
	}
	if _, err := NewCappedVerifier(inner, nil, CapConfig{Limit: 1}); err == nil {
		t.Fatalf("expected error for nil redis")
	}
	if _, err := NewCappedVerifier(inner, rdb, CapConfig{}); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestCappedVerifier_ReleasesSlot(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	v, err := NewCappedVerifier(delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil), rdb, CapConfig{Limit: 1})
	if err != nil {
		t.Fatalf("capped: %v", err)
	}

	for i := 0; i < 3; i++ {
		id, err := v.Verify(context.Background(), "tok")
		if err != nil || id.ID != "u1" {
			t.Fatalf("verify %d: %+v %v", i, id, err)
		}
	}
	if mr.Exists(defaultInflightKey) {
		t.Fatalf("expected counter key to be removed after release")
	}
}

func TestCappedVerifier_SaturatedIsTransportFailure(t *testing.T) {
	_, rdb := newMiniRedis(t)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	inner := VerifierFunc(func(ctx context.Context, token string) (VerifiedIdentity, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return VerifiedIdentity{ID: "u1"}, nil
	})
	v, err := NewCappedVerifier(inner, rdb, CapConfig{Limit: 1, Key: "test:inflight"})
	if err != nil {
		t.Fatalf("capped: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := v.Verify(context.Background(), "tok")
		done <- err
	}()
	<-entered

	_, err = v.Verify(context.Background(), "tok")
	if !errors.Is(err, ErrVerifierSaturated) || !IsTransportFailure(err) {
		t.Fatalf("expected saturated transport failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("provider must not be called when saturated")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first verify: %v", err)
	}
}

func TestCappedVerifier_RedisDownDegradesResolution(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	v, err := NewCappedVerifier(delayedVerifier(0, VerifiedIdentity{ID: "u1"}, nil), rdb, CapConfig{Limit: 5})
	if err != nil {
		t.Fatalf("capped: %v", err)
	}
	mr.Close()

	r := newTestResolver(t, v, nil)
	start := time.Now()
	id, err := r.ResolveRequired(context.Background(), scenarioToken)
	if err != nil {
		t.Fatalf("redis outage must not fail the request: %v", err)
	}
	if id.Tier != TierClaimed {
		t.Fatalf("expected claimed tier, got %+v", id)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("resolution took too long: %s", time.Since(start))
	}
}
