package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRegistryLifecycle(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(record.ID) != 64 {
		t.Fatalf("expected 64 hex chars session id, got %q", record.ID)
	}

	got, err := reg.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", got.UserID)
	}

	if err := reg.Revoke(ctx, record.ID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := reg.Get(ctx, record.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
	if err := reg.Revoke(ctx, record.ID); err != nil {
		t.Fatalf("second Revoke returned error: %v", err)
	}
}

func TestMemoryRegistryExpiry(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	record, err := reg.Create(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := reg.Get(ctx, record.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestRedisRegistry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reg, err := NewRedisRegistryFromURL(ctx, "redis://localhost:6379/15")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer reg.Close()

	record, err := reg.Create(ctx, "user-1", time.Minute)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	got, err := reg.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", got.UserID)
	}

	if err := reg.Revoke(ctx, record.ID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := reg.Get(ctx, record.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
}
