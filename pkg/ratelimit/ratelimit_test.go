package ratelimit

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/blogwatch/backend/pkg/errors"
)

func TestAcquireWithinBurst(t *testing.T) {
	limiter := New(3, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestAcquireBlocksWhenExhausted(t *testing.T) {
	limiter := New(1, time.Hour)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Acquire(ctx)
	if err == nil {
		t.Fatal("expected exhausted limiter to block until deadline")
	}
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestAllowDoesNotBlock(t *testing.T) {
	limiter := New(1, time.Hour)
	if !limiter.Allow() {
		t.Fatal("expected first call to be admitted")
	}
	if limiter.Allow() {
		t.Fatal("expected second call to be rejected")
	}
}

func TestNewNormalizesInvalidConfig(t *testing.T) {
	limiter := New(0, 0)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire on normalized limiter: %v", err)
	}
}
