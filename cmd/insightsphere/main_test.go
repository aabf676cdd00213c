package main

import (
	"context"
	"testing"

	"github.com/insightsphere/insightsphere/internal/config"
	"github.com/insightsphere/insightsphere/internal/rate"
)

func TestNewLimiterInMemory(t *testing.T) {
	limiter, closeLimiter, err := newLimiter(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if _, ok := limiter.(*rate.MemoryLimiter); !ok {
		t.Fatalf("expected memory limiter, got %T", limiter)
	}
	closeLimiter()
	closeLimiter()
}

func TestNewLimiterRedisUnreachable(t *testing.T) {
	limiter, closeLimiter, err := newLimiter(context.Background(), config.Config{RedisAddr: "127.0.0.1:1"})
	if err == nil {
		t.Fatalf("expected dial error, got limiter %T", limiter)
	}
	closeLimiter()
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := openStore(config.Config{DBDriver: "mysql"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
