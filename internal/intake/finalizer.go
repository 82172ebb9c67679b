package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/transfers"
)

const finalizeAttempts = 3

// TransferFinalizer reads and atomically finalizes pending transfers.
type TransferFinalizer interface {
	GetTransfer(ctx context.Context, token string) (transfers.Transfer, error)
	FinalizeTransfer(ctx context.Context, token string, build transfers.BuildEntryFunc) (transfers.Transfer, entries.Entry, error)
}

// Completer runs the completion pipeline for an entry.
type Completer interface {
	Process(ctx context.Context, entryID, localPath string) (completion.Outcome, error)
}

// Finalizer turns a completed upload-first transfer into an entry and runs
// completion for it within the same call.
type Finalizer struct {
	transfers TransferFinalizer
	completer Completer
	now       func() time.Time
	logger    *slog.Logger
}

// NewFinalizer creates a finalizer.
func NewFinalizer(log *slog.Logger, store TransferFinalizer, completer Completer) *Finalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Finalizer{
		transfers: store,
		completer: completer,
		now:       time.Now,
		logger:    log.With(slog.String("service", "finalizer")),
	}
}

// Finalize merges meta with the transfer identified by token. It fails with
// transfers.ErrTransferNotFound (absent or expired), transfers.ErrUploadNotReady
// or transfers.ErrAlreadyFinalized without changing anything. Once the entry
// exists, the result carries its id even when an error is returned.
func (f *Finalizer) Finalize(ctx context.Context, token string, meta UserMetadata) (FinalizeResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return FinalizeResult{}, transfers.ErrTransferNotFound
	}
	if strings.TrimSpace(meta.Title) == "" {
		return FinalizeResult{}, invalid("title", "is required")
	}
	if err := checkDescriptive(meta.Title, meta.Tags); err != nil {
		return FinalizeResult{}, err
	}

	// Cheap pre-check outside the transaction; the build callback re-checks under the lock.
	current, err := f.transfers.GetTransfer(ctx, token)
	if err != nil {
		return FinalizeResult{}, err
	}
	if err := f.ready(current); err != nil {
		return FinalizeResult{EntryID: current.EntryID}, err
	}

	var (
		transfer transfers.Transfer
		entry    entries.Entry
	)
	for attempt := 0; attempt < finalizeAttempts; attempt++ {
		transfer, entry, err = f.transfers.FinalizeTransfer(ctx, token, func(t transfers.Transfer) (entries.CreateParams, error) {
			if err := f.ready(t); err != nil {
				return entries.CreateParams{}, err
			}
			return entries.CreateParams{
				Owner:    t.Owner,
				Permlink: entries.NewPermlink(),
				Metadata: entries.Metadata{
					Title:            strings.TrimSpace(meta.Title),
					Description:      meta.Description,
					Tags:             cleanTags(meta.Tags),
					OriginalFilename: t.OriginalFilename,
					SizeBytes:        t.SizeBytes,
					DurationSeconds:  t.DurationSeconds,
				},
				LocalFile: t.LocalPath,
			}, nil
		})
		if !errors.Is(err, entries.ErrPermlinkTaken) {
			break
		}
		f.logger.Warn("permlink collision on finalize, regenerating", slog.Int("attempt", attempt+1))
	}
	if errors.Is(err, transfers.ErrAlreadyFinalized) {
		// Lost the race to a concurrent finalize.
		if t, getErr := f.transfers.GetTransfer(ctx, token); getErr == nil {
			return FinalizeResult{EntryID: t.EntryID}, err
		}
	}
	if err != nil {
		return FinalizeResult{}, err
	}

	log := f.logger.With(slog.String("token", token), slog.String("entry_id", entry.ID))
	log.Info("transfer finalized", slog.String("permlink", entry.Permlink))

	outcome, err := f.completer.Process(ctx, entry.ID, transfer.LocalPath)
	if err != nil {
		log.Error("completion after finalize failed", slog.Any("error", err))
		return FinalizeResult{EntryID: entry.ID}, fmt.Errorf("complete entry %s: %w", entry.ID, err)
	}
	return FinalizeResult{EntryID: entry.ID, Outcome: &outcome}, nil
}

func (f *Finalizer) ready(t transfers.Transfer) error {
	switch {
	case t.Finalized:
		return transfers.ErrAlreadyFinalized
	case t.Expired(f.now()):
		return transfers.ErrTransferNotFound
	case !t.TransferComplete:
		return transfers.ErrUploadNotReady
	}
	return nil
}
