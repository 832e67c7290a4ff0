package redis

import (
	"testing"

	"github.com/visionscan/pos-backend/pkg/config"
)

func TestIdempotencyKeyNamespacing(t *testing.T) {
	c := &Client{}
	got := c.IdempotencyKey("checkout", "abc-123")
	want := "vs:idempotency:checkout:abc-123"
	if got != want {
		t.Fatalf("key mismatch: got %q want %q", got, want)
	}
}

func TestIdempotencyKeySkipsEmptyParts(t *testing.T) {
	c := &Client{}
	got := c.IdempotencyKey("", "abc")
	if got != "vs:idempotency:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("unexpected pool size %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@localhost:6380/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 1 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
}
