package httputil

import (
	"context"
	"testing"
	"time"
)

func TestTryAcquireRespectsCapacity(t *testing.T) {
	s := NewSemaphore(2)

	if !s.TryAcquire() || !s.TryAcquire() {
		t.Fatal("first two acquisitions should succeed")
	}
	if s.TryAcquire() {
		t.Fatal("third acquisition should fail at capacity")
	}
	if s.DroppedCount() != 1 {
		t.Errorf("DroppedCount = %d, want 1", s.DroppedCount())
	}
	if s.InUse() != 2 {
		t.Errorf("InUse = %d, want 2", s.InUse())
	}

	s.Release()
	if !s.TryAcquire() {
		t.Error("acquisition should succeed after a release")
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	s := NewSemaphore(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire on an empty semaphore failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatal("Acquire at capacity should fail once the context expires")
	}
}

func TestReleaseWithoutAcquireIsHarmless(t *testing.T) {
	s := NewSemaphore(1)
	s.Release() // must not panic or corrupt state
	if !s.TryAcquire() {
		t.Error("semaphore should still work after a spurious release")
	}
}

func TestDefaultCapacity(t *testing.T) {
	s := NewSemaphore(0)
	for i := 0; i < 16; i++ {
		if !s.TryAcquire() {
			t.Fatalf("default capacity should allow 16 slots, failed at %d", i)
		}
	}
	if s.TryAcquire() {
		t.Error("default capacity should be exactly 16")
	}
}
