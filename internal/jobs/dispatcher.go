package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Dispatcher creates processing jobs for stored entries and exposes the
// retry/cancel controls.
//
// Uniqueness of (owner, permlink) among live jobs is enforced by the store
// (insert-or-fail), so Create never produces a second live job for a key even
// when two callers race past FindExisting.
type Dispatcher struct {
	store  Store
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over the given store.
func NewDispatcher(log *slog.Logger, store Store) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		store:  store,
		logger: log.With(slog.String("service", "jobs")),
	}
}

// FindExisting returns the job already recorded for (owner, permlink), if any.
func (d *Dispatcher) FindExisting(ctx context.Context, owner, permlink string) (Job, bool, error) {
	job, err := d.store.LatestJobForKey(ctx, owner, permlink)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("find job: %w", err)
	}
	return job, true, nil
}

// Create queues a new job. It returns ErrJobExists when a live job already holds the key.
func (d *Dispatcher) Create(ctx context.Context, owner, permlink string, input Input) (Job, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(permlink) == "" {
		return Job{}, errors.New("owner and permlink are required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return Job{}, errors.New("input url is required")
	}
	job, err := d.store.InsertJob(ctx, owner, permlink, input)
	if err != nil {
		return Job{}, err
	}
	d.logger.Info("job queued",
		slog.String("job_id", job.ID),
		slog.String("owner", owner),
		slog.String("permlink", permlink),
		slog.Int64("input_size", input.SizeBytes),
	)
	return job, nil
}

// Get returns a job by id.
func (d *Dispatcher) Get(ctx context.Context, id string) (Job, error) {
	return d.store.GetJob(ctx, strings.TrimSpace(id))
}

// Retry puts a failed or cancelled job back in the queue with its progress reset.
func (d *Dispatcher) Retry(ctx context.Context, id string) (Job, error) {
	if _, err := d.Get(ctx, id); err != nil {
		return Job{}, err
	}
	job, err := d.store.RequeueJob(ctx, strings.TrimSpace(id))
	if err != nil {
		return Job{}, err
	}
	d.logger.Info("job requeued", slog.String("job_id", job.ID), slog.Int("attempts", job.Attempts))
	return job, nil
}

// Cancel stops a queued or running job.
func (d *Dispatcher) Cancel(ctx context.Context, id string) (Job, error) {
	if _, err := d.Get(ctx, id); err != nil {
		return Job{}, err
	}
	job, err := d.store.CancelJob(ctx, strings.TrimSpace(id))
	if err != nil {
		return Job{}, err
	}
	d.logger.Info("job cancelled", slog.String("job_id", job.ID))
	return job, nil
}
