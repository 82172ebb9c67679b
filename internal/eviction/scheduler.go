// Package eviction unpins fallback-stored content of old published entries.
package eviction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/metrics"
	"github.com/hivecast/ingestd/internal/schedule"
)

// TaskName is the schedule task name of the sweep.
const TaskName = "eviction_sweep"

const defaultBatchSize = 100

// ErrSweepInProgress is returned when a sweep is requested while one is running.
var ErrSweepInProgress = errors.New("eviction sweep already in progress")

// EntryStore selects candidates and records eviction.
type EntryStore interface {
	ListEvictionCandidates(ctx context.Context, olderThan time.Time, after entries.EvictionCursor, limit int) ([]entries.Entry, error)
	MarkEvictionEligible(ctx context.Context, id string) (bool, error)
}

// Unpinner releases stored content.
type Unpinner interface {
	Unpin(ctx context.Context, origin entries.Origin, contentID string) error
}

// Config configures a Scheduler.
type Config struct {
	Retention time.Duration
	// UnpinRate caps unpin calls per second; zero or less disables pacing.
	UnpinRate float64
	BatchSize int
}

// Report summarizes one sweep.
type Report struct {
	Selected       int       `json:"selected"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	BytesReclaimed int64     `json:"bytes_reclaimed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Scheduler runs retention sweeps. Sweeps never overlap.
type Scheduler struct {
	store     EntryStore
	unpinner  Unpinner
	retention time.Duration
	batch     int
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	running   sync.Mutex
}

// NewScheduler creates a sweep scheduler. m may be nil.
func NewScheduler(log *slog.Logger, cfg Config, store EntryStore, unpinner Unpinner, m *metrics.Metrics) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.UnpinRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UnpinRate), 1)
	}
	return &Scheduler{
		store:     store,
		unpinner:  unpinner,
		retention: cfg.Retention,
		batch:     batch,
		limiter:   limiter,
		metrics:   m,
		logger:    log.With(slog.String("service", "eviction")),
		now:       time.Now,
	}
}

// Task returns the schedule task that runs the sweep on pattern.
func (s *Scheduler) Task(pattern string) schedule.Task {
	return schedule.Task{
		Name:    TaskName,
		Pattern: pattern,
		Run: func(ctx context.Context) error {
			_, err := s.Run(ctx)
			if errors.Is(err, ErrSweepInProgress) {
				s.logger.Info("scheduled sweep skipped, previous sweep still running")
				return nil
			}
			return err
		},
	}
}

// Run selects fallback-stored published entries older than the retention
// window, unpins each one and flags it. A failed item is counted and left for
// the next run; it never aborts the sweep.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	if !s.running.TryLock() {
		return Report{}, ErrSweepInProgress
	}
	defer s.running.Unlock()

	report := Report{StartedAt: s.now()}
	cutoff := report.StartedAt.Add(-s.retention)
	var cursor entries.EvictionCursor

	for {
		batch, err := s.store.ListEvictionCandidates(ctx, cutoff, cursor, s.batch)
		if err != nil {
			report.FinishedAt = s.now()
			return report, fmt.Errorf("list eviction candidates: %w", err)
		}
		for _, entry := range batch {
			cursor = entries.CursorAfter(entry)
			report.Selected++
			if err := s.limiter.Wait(ctx); err != nil {
				report.FinishedAt = s.now()
				return report, err
			}
			bytes, err := s.evict(ctx, entry)
			if err != nil {
				report.Failed++
				s.metrics.Evicted(false, 0)
				s.logger.Warn("evict entry failed",
					slog.String("entry_id", entry.ID),
					slog.Any("error", err),
				)
				continue
			}
			report.Succeeded++
			report.BytesReclaimed += bytes
			s.metrics.Evicted(true, bytes)
		}
		if len(batch) < s.batch {
			break
		}
	}

	report.FinishedAt = s.now()
	s.logger.Info("eviction sweep finished",
		slog.Int("selected", report.Selected),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("reclaimed", humanize.IBytes(uint64(report.BytesReclaimed))),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *Scheduler) evict(ctx context.Context, entry entries.Entry) (int64, error) {
	ref, ok := entry.Storage()
	if !ok || ref.Origin != entries.OriginFallback {
		return 0, fmt.Errorf("entry %s has no fallback storage", entry.ID)
	}
	if err := s.unpinner.Unpin(ctx, ref.Origin, ref.ContentID); err != nil {
		return 0, fmt.Errorf("unpin %s: %w", ref.ContentID, err)
	}
	flipped, err := s.store.MarkEvictionEligible(ctx, entry.ID)
	if err != nil {
		return 0, fmt.Errorf("mark eviction eligible: %w", err)
	}
	if !flipped {
		return 0, nil
	}
	return entry.Metadata.SizeBytes, nil
}
