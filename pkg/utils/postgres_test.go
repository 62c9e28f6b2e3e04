package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 10 || got.MaxIdleConns != 5 {
		t.Fatalf("unexpected pool sizes %+v", got)
	}
	if got.PingTimeout != 3*time.Second {
		t.Fatalf("unexpected ping timeout %s", got.PingTimeout)
	}

	custom := PostgresPoolConfig{MaxOpenConns: 3, PingTimeout: time.Second}.withDefaults()
	if custom.MaxOpenConns != 3 || custom.PingTimeout != time.Second {
		t.Fatalf("explicit values must be kept, got %+v", custom)
	}
}
