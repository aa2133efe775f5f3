package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/studygen/studygen/internal/models"
)

const lockKey = "studygen:sched:lock"

// SchedulerConfig holds the recurring-run knobs.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled" json:"enabled"`
	CronSpec     string        `mapstructure:"cron_spec" json:"cron_spec"`
	Subjects     []string      `mapstructure:"subjects" json:"subjects"`
	TickInterval time.Duration `mapstructure:"tick_interval" json:"tick_interval"`
	LockTTL      time.Duration `mapstructure:"lock_ttl" json:"lock_ttl"`
}

// DefaultSchedulerConfig returns the code defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		CronSpec:     "@daily",
		TickInterval: time.Minute,
		LockTTL:      30 * time.Minute,
	}
}

// Validate checks the loop timing knobs. The cron spec itself is not
// validated here: an unparseable spec degrades to @daily at runtime.
func (c SchedulerConfig) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive, got %s", c.LockTTL)
	}
	return nil
}

// Runner is the unit of work the scheduler fires, normally a Processor.
// Scheduled runs pass maxTopics of 0, leaving the topic count bounded only
// by the daily budget.
type Runner interface {
	Run(ctx context.Context, subject string, maxTopics int) (models.BatchGenerationResult, error)
}

// Scheduler fires batch runs on a recurring schedule, rotating through the
// configured subjects. Runs are single-flight in-process, and when a redis
// client is supplied a SetNX lock keeps multiple instances from running the
// same schedule concurrently.
type Scheduler struct {
	cfg    SchedulerConfig
	runner Runner
	rdb    *redis.Client
	logger *log.Logger
	now    func() time.Time

	stop chan struct{}

	mu       sync.Mutex
	running  bool
	lastRun  *time.Time
	rotation int
}

// NewScheduler wires a scheduler. rdb may be nil for single-instance
// deployments.
func NewScheduler(cfg SchedulerConfig, runner Runner, rdb *redis.Client, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	switch cfg.CronSpec {
	case "@daily", "@hourly", "@weekly":
	default:
		if _, err := cronexpr.Parse(cfg.CronSpec); err != nil {
			logger.Printf("unparseable cron_spec %q, falling back to @daily: %v", cfg.CronSpec, err)
		}
	}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		rdb:    rdb,
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

// Start launches the tick loop in a goroutine.
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	s.logger.Printf("scheduler started: spec=%q subjects=%v", s.cfg.CronSpec, s.cfg.Subjects)
	go func() {
		for {
			select {
			case <-s.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(context.Background())
			}
		}
	}()
}

// Stop halts the tick loop. In-flight runs finish on their own.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running || !isDue(s.cfg.CronSpec, s.lastRun, s.now()) {
		s.mu.Unlock()
		return
	}
	subject := s.nextSubject()
	now := s.now()
	s.lastRun = &now
	s.running = true
	s.mu.Unlock()

	// Distributed lock to avoid duplicate runs across instances.
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, lockKey, "1", s.cfg.LockTTL).Result()
		if err != nil {
			s.logger.Printf("lock acquisition failed, proceeding unlocked: %v", err)
		} else if !ok {
			s.logger.Printf("another instance holds the schedule lock, skipping")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
	}

	go func() {
		defer func() {
			if s.rdb != nil {
				s.rdb.Del(ctx, lockKey)
			}
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		label := subject
		if label == "" {
			label = "all subjects"
		}
		s.logger.Printf("scheduled run starting for %s", label)
		result, err := s.runner.Run(ctx, subject, 0)
		if err != nil {
			s.logger.Printf("scheduled run for %s failed: %v", label, err)
			return
		}
		s.logger.Printf("scheduled run for %s done: %d questions across %d topics (%d failed)",
			label, result.QuestionsGenerated, result.TopicsProcessed, result.FailedTopics)
	}()
}

// nextSubject rotates through the configured subjects, "" when none are
// configured. Callers must hold s.mu.
func (s *Scheduler) nextSubject() string {
	if len(s.cfg.Subjects) == 0 {
		return ""
	}
	subject := s.cfg.Subjects[s.rotation%len(s.cfg.Subjects)]
	s.rotation++
	return subject
}

// isDue determines whether a schedule should fire now given its last run.
// Supports "@daily", "@hourly", "@weekly", and standard 5-field cron
// expressions; an unparseable spec degrades to @daily.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	interval := time.Duration(0)
	switch cronSpec {
	case "@hourly":
		interval = time.Hour
	case "@daily":
		interval = 24 * time.Hour
	case "@weekly":
		interval = 7 * 24 * time.Hour
	}
	if interval > 0 {
		if last == nil {
			return true
		}
		return now.Sub(*last) >= interval
	}

	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	}
	if last == nil {
		return true
	}
	return !expr.Next(*last).After(now)
}
