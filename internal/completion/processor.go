// Package completion turns a finished transfer into one stored object and one
// processing job, tolerating duplicate and concurrent notifications.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/metrics"
	"github.com/hivecast/ingestd/internal/storage"
)

// ErrEntryFailed is returned when the entry already ended in the failed state
// without a stored object and job.
var ErrEntryFailed = errors.New("entry already failed")

// EntryStore is the subset of entries.Store the processor mutates.
type EntryStore interface {
	GetEntry(ctx context.Context, id string) (entries.Entry, error)
	SetEntryLocalFile(ctx context.Context, id, localFile string) (entries.Entry, error)
	MarkEntryStored(ctx context.Context, id string, ref entries.StorageRef) (entries.Entry, error)
	MarkEntryDispatched(ctx context.Context, id, jobID string) (entries.Entry, error)
	MarkEntryFailed(ctx context.Context, id, reason string) (entries.Entry, error)
}

// Uploader stores a local file.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (storage.Result, error)
}

// JobDispatcher finds or creates the processing job for a key.
type JobDispatcher interface {
	FindExisting(ctx context.Context, owner, permlink string) (jobs.Job, bool, error)
	Create(ctx context.Context, owner, permlink string, input jobs.Input) (jobs.Job, error)
}

// Outcome reports what a Process call did.
type Outcome struct {
	EntryID    string         `json:"entry_id"`
	Owner      string         `json:"owner"`
	Permlink   string         `json:"permlink"`
	Status     entries.Status `json:"status"`
	ContentID  string         `json:"content_id"`
	Origin     entries.Origin `json:"origin"`
	GatewayURL string         `json:"gateway_url"`
	JobID      string         `json:"job_id"`
	// Duplicate is set when the entry was already processed; only the local file was removed.
	Duplicate bool `json:"duplicate"`
	// Attached is set when an existing job was linked instead of creating a new one.
	Attached bool `json:"attached"`
}

// Processor runs the completion pipeline.
type Processor struct {
	entries  EntryStore
	storage  Uploader
	jobs     JobDispatcher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	removeFn func(string) error
}

// NewProcessor creates a processor. m may be nil.
func NewProcessor(log *slog.Logger, store EntryStore, uploader Uploader, dispatcher JobDispatcher, m *metrics.Metrics) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		entries:  store,
		storage:  uploader,
		jobs:     dispatcher,
		metrics:  m,
		logger:   log.With(slog.String("service", "completion")),
		removeFn: os.Remove,
	}
}

// Process stores the file at localPath for the entry and dispatches its job.
// An empty localPath falls back to the file recorded on the entry.
//
// Only the storage phase can abort: a storage failure leaves the entry and the
// file untouched for a later retry. Every later step can be re-run safely.
func (p *Processor) Process(ctx context.Context, entryID, localPath string) (Outcome, error) {
	entry, err := p.entries.GetEntry(ctx, strings.TrimSpace(entryID))
	if err != nil {
		return Outcome{}, err
	}
	if localPath == "" {
		localPath = entry.LocalFile()
	}
	log := p.logger.With(slog.String("entry_id", entry.ID), slog.String("permlink", entry.Permlink))

	if entry.Processed() {
		return p.duplicate(log, entry, localPath), nil
	}
	if entry.State.Status() == entries.StatusFailed {
		return Outcome{}, ErrEntryFailed
	}
	entry = p.recordLocalFile(ctx, log, entry, localPath)

	ref, size, err := p.store(ctx, log, entry, localPath)
	if err != nil {
		return Outcome{}, err
	}
	if ref == nil {
		// A concurrent run finished the whole pipeline first.
		current, err := p.entries.GetEntry(ctx, entry.ID)
		if err != nil {
			return Outcome{}, err
		}
		return p.duplicate(log, current, localPath), nil
	}

	job, attached, err := p.dispatch(ctx, entry, *ref, size)
	if err != nil {
		p.metrics.Completion("error")
		return Outcome{}, err
	}

	final, err := p.entries.MarkEntryDispatched(ctx, entry.ID, job.ID)
	if err != nil {
		if !errors.Is(err, entries.ErrInvalidTransition) {
			p.metrics.Completion("error")
			return Outcome{}, fmt.Errorf("mark entry dispatched: %w", err)
		}
		current, getErr := p.entries.GetEntry(ctx, entry.ID)
		if getErr != nil {
			return Outcome{}, getErr
		}
		if !current.Processed() {
			p.metrics.Completion("error")
			return Outcome{}, fmt.Errorf("mark entry dispatched: entry is %s: %w", current.State.Status(), err)
		}
		return p.duplicate(log, current, localPath), nil
	}

	p.removeLocal(log, localPath)
	outcome := outcomeFor(final)
	outcome.Attached = attached
	if attached {
		p.metrics.Completion("attached")
	} else {
		p.metrics.Completion("dispatched")
	}
	log.Info("entry dispatched",
		slog.String("job_id", job.ID),
		slog.String("content_id", ref.ContentID),
		slog.String("origin", string(ref.Origin)),
		slog.Bool("attached", attached),
	)
	return outcome, nil
}

// recordLocalFile keeps the notified path on a created entry so a later
// manual retry can find the file after a storage failure.
func (p *Processor) recordLocalFile(ctx context.Context, log *slog.Logger, entry entries.Entry, localPath string) entries.Entry {
	if _, ok := entry.State.(entries.Created); !ok {
		return entry
	}
	if localPath == "" || localPath == entry.LocalFile() {
		return entry
	}
	updated, err := p.entries.SetEntryLocalFile(ctx, entry.ID, localPath)
	if err != nil {
		if !errors.Is(err, entries.ErrInvalidTransition) {
			log.Warn("record local file failed", slog.Any("error", err))
		}
		return entry
	}
	return updated
}

// store returns the storage reference of the entry, uploading the file when the
// entry has none yet. A nil reference means another run already dispatched the entry.
func (p *Processor) store(ctx context.Context, log *slog.Logger, entry entries.Entry, localPath string) (*entries.StorageRef, int64, error) {
	if ref, ok := entry.Storage(); ok {
		log.Info("entry already stored, resuming dispatch", slog.String("content_id", ref.ContentID))
		return &ref, entry.Metadata.SizeBytes, nil
	}
	if strings.TrimSpace(localPath) == "" {
		return nil, 0, fmt.Errorf("entry %s has no local file to store", entry.ID)
	}

	res, err := p.storage.Upload(ctx, localPath)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			p.metrics.Completion("storage_failed")
			if _, markErr := p.entries.MarkEntryFailed(ctx, entry.ID, err.Error()); markErr != nil {
				log.Warn("mark entry failed", slog.Any("error", markErr))
			}
			p.removeLocal(log, localPath)
			return nil, 0, err
		}
		// A concurrent run may have stored the entry and removed the file meanwhile.
		current, getErr := p.entries.GetEntry(ctx, entry.ID)
		if getErr != nil {
			return nil, 0, err
		}
		if current.Processed() {
			return nil, 0, nil
		}
		if ref, ok := current.Storage(); ok {
			return &ref, current.Metadata.SizeBytes, nil
		}
		p.metrics.Completion("storage_failed")
		return nil, 0, err
	}

	stored, err := p.entries.MarkEntryStored(ctx, entry.ID, res.Ref())
	if err == nil {
		ref, _ := stored.Storage()
		return &ref, res.SizeBytes, nil
	}
	if !errors.Is(err, entries.ErrInvalidTransition) {
		return nil, 0, fmt.Errorf("mark entry stored: %w", err)
	}

	current, getErr := p.entries.GetEntry(ctx, entry.ID)
	if getErr != nil {
		return nil, 0, getErr
	}
	if current.Processed() {
		return nil, 0, nil
	}
	ref, ok := current.Storage()
	if !ok {
		return nil, 0, fmt.Errorf("mark entry stored: entry is %s: %w", current.State.Status(), err)
	}
	log.Warn("entry stored concurrently, keeping first object",
		slog.String("content_id", ref.ContentID),
		slog.String("discarded_content_id", res.ContentID),
	)
	return &ref, res.SizeBytes, nil
}

// dispatch links an existing job for the key or creates one. A concurrent
// create that wins the key is resolved by re-reading it.
func (p *Processor) dispatch(ctx context.Context, entry entries.Entry, ref entries.StorageRef, size int64) (jobs.Job, bool, error) {
	existing, found, err := p.jobs.FindExisting(ctx, entry.Owner, entry.Permlink)
	if err != nil {
		return jobs.Job{}, false, err
	}
	if found {
		return existing, true, nil
	}

	job, err := p.jobs.Create(ctx, entry.Owner, entry.Permlink, jobs.Input{URL: ref.GatewayURL, SizeBytes: size})
	if err == nil {
		return job, false, nil
	}
	if !errors.Is(err, jobs.ErrJobExists) {
		return jobs.Job{}, false, fmt.Errorf("create job: %w", err)
	}
	job, found, findErr := p.jobs.FindExisting(ctx, entry.Owner, entry.Permlink)
	if findErr != nil {
		return jobs.Job{}, false, findErr
	}
	if !found {
		return jobs.Job{}, false, fmt.Errorf("create job: %w", err)
	}
	return job, true, nil
}

func (p *Processor) duplicate(log *slog.Logger, entry entries.Entry, localPath string) Outcome {
	p.removeLocal(log, localPath)
	p.metrics.Completion("duplicate")
	log.Info("duplicate completion suppressed", slog.String("job_id", entry.JobID()))
	out := outcomeFor(entry)
	out.Duplicate = true
	return out
}

func (p *Processor) removeLocal(log *slog.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := p.removeFn(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("remove local file failed", slog.String("path", path), slog.Any("error", err))
	}
}

func outcomeFor(e entries.Entry) Outcome {
	out := Outcome{
		EntryID:  e.ID,
		Owner:    e.Owner,
		Permlink: e.Permlink,
		Status:   e.State.Status(),
		JobID:    e.JobID(),
	}
	if ref, ok := e.Storage(); ok {
		out.ContentID = ref.ContentID
		out.Origin = ref.Origin
		out.GatewayURL = ref.GatewayURL
	}
	return out
}
