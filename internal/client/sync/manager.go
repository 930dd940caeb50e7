// Package sync drains the local queue against the remote store and pulls
// remote changes back, preserving data under optimistic concurrency: version
// conflicts become durable conflict records, transient failures are retried
// with bounded backoff, and nothing is ever silently overwritten.
package sync

import (
	"context"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/api"
	"github.com/dmitrijs2005/placekeeper/internal/client/store"
	"github.com/dmitrijs2005/placekeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

// Config tunes the sync manager.
type Config struct {
	// BatchSize bounds how many queue items one cycle pushes and how many
	// documents one pull page requests.
	BatchSize int

	// MaxRetries is the transient-failure budget per item; once exhausted
	// the item is parked as stuck and surfaced instead of retried.
	MaxRetries int

	// BackoffBase is the first retry delay; each retry doubles it up to
	// BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultConfig mirrors the behavior field clients ship with.
func DefaultConfig() Config {
	return Config{
		BatchSize:   50,
		MaxRetries:  5,
		BackoffBase: time.Second,
		BackoffCap:  5 * time.Minute,
	}
}

// CycleReport summarizes one sync cycle. Sync never fires and forgets: the
// caller always gets the outcome.
type CycleReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Pushed    int
	Conflicts int
	Retried   int
	Stuck     int
	Skipped   int
	Pulled    int

	// PullErr is set when the pull half failed after retries; pushes from
	// the same cycle are still committed.
	PullErr error
}

// Manager owns the push/pull lifecycle. A single logical worker: concurrent
// triggers coalesce into the running cycle instead of racing it.
type Manager struct {
	store  *store.Store
	client api.Client
	logger logging.Logger
	cfg    Config

	group singleflight.Group
	now   func() time.Time
}

func NewManager(st *store.Store, client api.Client, logger logging.Logger, cfg Config) *Manager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultConfig().BackoffCap
	}
	return &Manager{store: st, client: client, logger: logger, cfg: cfg, now: time.Now}
}

// Sync runs one push+pull cycle. Concurrent callers (manual trigger during
// auto-sync, double taps) share the in-flight cycle and its report.
func (m *Manager) Sync(ctx context.Context, sess store.Session) (*CycleReport, error) {
	v, err, _ := m.group.Do("cycle", func() (any, error) {
		return m.runCycle(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CycleReport), nil
}

func (m *Manager) runCycle(ctx context.Context, sess store.Session) (*CycleReport, error) {
	report := &CycleReport{StartedAt: m.now().UTC()}

	if err := m.push(ctx, report); err != nil {
		return nil, err
	}

	// Pull failures don't invalidate the pushes already committed.
	if err := m.pull(ctx, report); err != nil {
		m.logger.Warn(ctx, "pull failed", "error", err)
		report.PullErr = err
	}

	report.FinishedAt = m.now().UTC()
	m.logger.Info(ctx, "sync cycle finished",
		"pushed", report.Pushed, "pulled", report.Pulled,
		"conflicts", report.Conflicts, "stuck", report.Stuck)
	return report, nil
}

// backoff computes the delay before retry number retryCount (0-based):
// base × 2^retryCount, capped.
func (m *Manager) backoff(retryCount int) time.Duration {
	d := m.cfg.BackoffBase
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= m.cfg.BackoffCap {
			return m.cfg.BackoffCap
		}
	}
	if d > m.cfg.BackoffCap {
		return m.cfg.BackoffCap
	}
	return d
}

// Task is a handle on a background auto-sync loop.
type Task struct {
	reports chan CycleReport
	done    chan struct{}
	stop    context.CancelFunc
}

// Reports streams per-cycle outcomes. Slow consumers drop reports rather
// than blocking the loop.
func (t *Task) Reports() <-chan CycleReport { return t.reports }

// Done closes when the loop has fully exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Stop cancels the loop; pending work stops at the next batch boundary.
func (t *Task) Stop() { t.stop() }

// StartAuto launches periodic sync. It funnels through the same
// mutual-exclusion guard as manual Sync calls, so the two never race.
func (m *Manager) StartAuto(ctx context.Context, sess store.Session, interval time.Duration) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		reports: make(chan CycleReport, 1),
		done:    make(chan struct{}),
		stop:    cancel,
	}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := m.Sync(ctx, sess)
				if err != nil {
					m.logger.Error(ctx, "auto sync failed", "error", err)
					continue
				}
				select {
				case t.reports <- *report:
				default:
				}
			}
		}
	}()

	return t
}
