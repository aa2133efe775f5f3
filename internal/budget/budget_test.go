package budget

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func newTestTracker(limit int) *Tracker {
	return New(limit, nil, log.New(io.Discard, "", 0))
}

func TestReserveWithinLimit(t *testing.T) {
	tr := newTestTracker(10)
	ctx := context.Background()

	if err := tr.Reserve(ctx, 7); err != nil {
		t.Fatalf("Reserve(7): %v", err)
	}
	if got := tr.Remaining(); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}
	if err := tr.Reserve(ctx, 3); err != nil {
		t.Fatalf("Reserve(3): %v", err)
	}
	if got := tr.Remaining(); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestReserveOverLimit(t *testing.T) {
	tr := newTestTracker(10)
	ctx := context.Background()

	if err := tr.Reserve(ctx, 8); err != nil {
		t.Fatalf("Reserve(8): %v", err)
	}
	err := tr.Reserve(ctx, 5)
	if err == nil {
		t.Fatal("expected over-limit reservation to fail")
	}
	var exceeded ErrExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("error type = %T", err)
	}
	if exceeded.Used != 8 || exceeded.Limit != 10 || exceeded.Requested != 5 {
		t.Errorf("error = %+v", exceeded)
	}
	// A failed reservation must not consume anything.
	if got := tr.Used(); got != 8 {
		t.Errorf("Used = %d, want 8", got)
	}
}

func TestRelease(t *testing.T) {
	tr := newTestTracker(10)
	ctx := context.Background()

	if err := tr.Reserve(ctx, 10); err != nil {
		t.Fatalf("Reserve(10): %v", err)
	}
	tr.Release(ctx, 4)
	if got := tr.Remaining(); got != 4 {
		t.Errorf("Remaining = %d, want 4", got)
	}

	tr.Release(ctx, 100)
	if got := tr.Used(); got != 0 {
		t.Errorf("Used = %d after over-release, want 0", got)
	}
}

func TestDayRollover(t *testing.T) {
	tr := newTestTracker(10)
	ctx := context.Background()

	day := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return day }
	tr.day = tr.today()

	if err := tr.Reserve(ctx, 10); err != nil {
		t.Fatalf("Reserve(10): %v", err)
	}
	if err := tr.Reserve(ctx, 1); err == nil {
		t.Fatal("expected exhausted budget")
	}

	// Crossing midnight resets the counter.
	tr.now = func() time.Time { return day.Add(2 * time.Hour) }
	if got := tr.Remaining(); got != 10 {
		t.Errorf("Remaining after rollover = %d, want 10", got)
	}
	if err := tr.Reserve(ctx, 5); err != nil {
		t.Fatalf("Reserve after rollover: %v", err)
	}
}
