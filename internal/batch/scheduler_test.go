package batch

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/studygen/studygen/internal/models"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	hourAgo := now.Add(-time.Hour)
	halfHourAgo := now.Add(-30 * time.Minute)
	dayAgo := now.Add(-25 * time.Hour)
	sixDaysAgo := now.Add(-6 * 24 * time.Hour)
	eightDaysAgo := now.Add(-8 * 24 * time.Hour)

	tests := []struct {
		name string
		spec string
		last *time.Time
		want bool
	}{
		{"never run is always due", "@daily", nil, true},
		{"hourly elapsed", "@hourly", &hourAgo, true},
		{"hourly not elapsed", "@hourly", &halfHourAgo, false},
		{"daily elapsed", "@daily", &dayAgo, true},
		{"daily not elapsed", "@daily", &hourAgo, false},
		{"weekly elapsed", "@weekly", &eightDaysAgo, true},
		{"weekly not elapsed", "@weekly", &sixDaysAgo, false},
		{"cron fired since last", "0 6 * * *", &dayAgo, true},
		{"cron not fired since last", "0 6 * * *", &halfHourAgo, false},
		{"invalid spec degrades to daily", "not-a-cron", &dayAgo, true},
		{"invalid spec not elapsed", "not-a-cron", &hourAgo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDue(tt.spec, tt.last, now); got != tt.want {
				t.Errorf("isDue(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

type fakeRunner struct {
	mu       sync.Mutex
	subjects []string
	block    chan struct{}
	done     chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, subject string, _ int) (models.BatchGenerationResult, error) {
	f.mu.Lock()
	f.subjects = append(f.subjects, subject)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.done != nil {
		f.done <- struct{}{}
	}
	return models.BatchGenerationResult{}, nil
}

func newTestScheduler(cfg SchedulerConfig, runner Runner) *Scheduler {
	return NewScheduler(cfg, runner, nil, log.New(io.Discard, "", 0))
}

// waitIdle blocks until the scheduler's in-flight run has fully finished.
func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("scheduler run did not finish")
}

func TestSchedulerSubjectRotation(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.CronSpec = "@hourly"
	cfg.Subjects = []string{"Biology", "Chemistry", "Physics"}

	runner := &fakeRunner{done: make(chan struct{}, 1)}
	s := newTestScheduler(cfg, runner)

	clock := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		s.tick(context.Background())
		<-runner.done
		waitIdle(t, s)
		clock = clock.Add(2 * time.Hour)
	}

	want := []string{"Biology", "Chemistry", "Physics", "Biology"}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.subjects) != len(want) {
		t.Fatalf("runs = %v, want %v", runner.subjects, want)
	}
	for i := range want {
		if runner.subjects[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", runner.subjects, want)
		}
	}
}

func TestSchedulerSingleFlight(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.CronSpec = "@hourly"

	runner := &fakeRunner{block: make(chan struct{}), done: make(chan struct{}, 1)}
	s := newTestScheduler(cfg, runner)

	clock := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())

	// A later due tick while the first run is in flight must not start a
	// second run.
	clock = clock.Add(2 * time.Hour)
	s.tick(context.Background())

	close(runner.block)
	<-runner.done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.subjects) != 1 {
		t.Fatalf("runs = %d, want 1", len(runner.subjects))
	}
}

func TestSchedulerNotDueDoesNothing(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.CronSpec = "@daily"

	runner := &fakeRunner{done: make(chan struct{}, 1)}
	s := newTestScheduler(cfg, runner)

	clock := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())
	<-runner.done
	waitIdle(t, s)

	// One hour later a @daily schedule is not due again.
	clock = clock.Add(time.Hour)
	s.tick(context.Background())

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.subjects) != 1 {
		t.Fatalf("runs = %d, want 1", len(runner.subjects))
	}
}

func TestSchedulerConfigValidate(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	// An unparseable cron spec is not fatal at startup: the tick loop falls
	// back to @daily pacing for it.
	cfg.CronSpec = "not a cron at all %%"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unparseable spec must not fail validation: %v", err)
	}

	cfg = DefaultSchedulerConfig()
	cfg.TickInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero tick_interval to be rejected")
	}

	cfg = DefaultSchedulerConfig()
	cfg.LockTTL = -time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative lock_ttl to be rejected")
	}
}

func TestSchedulerRunsOnUnparseableSpec(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.CronSpec = "not-a-cron"

	runner := &fakeRunner{done: make(chan struct{}, 1)}
	s := newTestScheduler(cfg, runner)

	clock := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.tick(context.Background())
	<-runner.done
	waitIdle(t, s)

	// Daily pacing applies to the broken spec.
	clock = clock.Add(time.Hour)
	s.tick(context.Background())
	clock = clock.Add(25 * time.Hour)
	s.tick(context.Background())
	<-runner.done
	waitIdle(t, s)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.subjects) != 2 {
		t.Fatalf("runs = %d, want 2", len(runner.subjects))
	}
}
