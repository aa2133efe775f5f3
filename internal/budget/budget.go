// Package budget enforces the daily cap on generated questions.
package budget

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const mirrorTTL = 48 * time.Hour

// Tracker counts questions generated today against a daily limit. The
// in-process counter is authoritative; when a redis client is supplied the
// count is mirrored under a per-date key so restarts resume from the
// persisted figure. The counter resets when the calendar day changes.
type Tracker struct {
	mu     sync.Mutex
	limit  int
	used   int
	day    string
	now    func() time.Time
	rdb    *redis.Client
	logger *log.Logger
}

// New creates a tracker with the given daily limit. rdb may be nil.
func New(limit int, rdb *redis.Client, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(log.Writer(), "[BUDGET] ", log.LstdFlags)
	}
	t := &Tracker{
		limit:  limit,
		now:    time.Now,
		rdb:    rdb,
		logger: logger,
	}
	t.day = t.today()
	return t
}

func (t *Tracker) today() string {
	return t.now().UTC().Format("2006-01-02")
}

func mirrorKey(day string) string {
	return "studygen:budget:" + day
}

// rollover resets the counter when the stored day no longer matches the
// clock. Callers must hold t.mu.
func (t *Tracker) rollover() {
	today := t.today()
	if today != t.day {
		t.logger.Printf("new day %s, resetting counter (was %d/%d on %s)", today, t.used, t.limit, t.day)
		t.day = today
		t.used = 0
	}
}

// Restore loads today's persisted count from redis, if any. Called once at
// startup so a restarted scheduler does not double-spend the budget.
func (t *Tracker) Restore(ctx context.Context) {
	if t.rdb == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	n, err := t.rdb.Get(ctx, mirrorKey(t.day)).Int()
	if err != nil {
		if err != redis.Nil {
			t.logger.Printf("restore failed: %v", err)
		}
		return
	}
	if n > t.used {
		t.used = n
		t.logger.Printf("restored %d/%d used for %s", t.used, t.limit, t.day)
	}
}

// Reserve claims n questions of today's budget. It claims nothing and
// returns ErrExceeded when the reservation would exceed the limit.
func (t *Tracker) Reserve(ctx context.Context, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	if n < 0 || t.used+n > t.limit {
		return ErrExceeded{Requested: n, Used: t.used, Limit: t.limit}
	}
	t.used += n
	t.mirror(ctx)
	return nil
}

// Release returns unused reservations, e.g. when a topic produced fewer
// questions than reserved.
func (t *Tracker) Release(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	t.used -= n
	if t.used < 0 {
		t.used = 0
	}
	t.mirror(ctx)
}

// mirror pushes the current count to redis, best effort. Callers must hold
// t.mu.
func (t *Tracker) mirror(ctx context.Context) {
	if t.rdb == nil {
		return
	}
	if err := t.rdb.Set(ctx, mirrorKey(t.day), t.used, mirrorTTL).Err(); err != nil {
		t.logger.Printf("mirror failed: %v", err)
	}
}

// Remaining reports how many questions may still be generated today.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.limit - t.used
}

// Used reports today's consumption.
func (t *Tracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.used
}

// Limit returns the configured daily cap.
func (t *Tracker) Limit() int {
	return t.limit
}
