package transfers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

const purgeBatchSize = 100

// Service records transfer completion and discards transfers that were never finalized.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a transfer service over the given store.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "transfers")),
		now:    time.Now,
	}
}

// Get returns a transfer by token.
func (s *Service) Get(ctx context.Context, token string) (Transfer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Transfer{}, ErrTransferNotFound
	}
	return s.store.GetTransfer(ctx, token)
}

// MarkComplete records that the bytes of a transfer arrived at localPath.
// Repeated notifications before finalization just refresh the path; after
// finalization they return ErrAlreadyFinalized and change nothing.
func (s *Service) MarkComplete(ctx context.Context, token, localPath string) (Transfer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Transfer{}, ErrTransferNotFound
	}
	if strings.TrimSpace(localPath) == "" {
		return Transfer{}, errors.New("local path is required")
	}
	t, err := s.store.MarkTransferComplete(ctx, token, localPath)
	if err != nil {
		return t, err
	}
	s.logger.Info("transfer complete",
		slog.String("token", token),
		slog.String("owner", t.Owner),
		slog.String("path", localPath),
	)
	return t, nil
}

// PurgeExpired deletes unfinalized transfers past their expiry and removes their
// local files. It returns the number of transfers discarded.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	purged := 0
	for {
		items, err := s.store.ListExpiredTransfers(ctx, s.now(), purgeBatchSize)
		if err != nil {
			return purged, fmt.Errorf("list expired transfers: %w", err)
		}
		if len(items) == 0 {
			return purged, nil
		}
		removedInBatch := 0
		for _, t := range items {
			deleted, err := s.store.DeleteTransfer(ctx, t.Token)
			if err != nil {
				s.logger.Warn("delete expired transfer failed", slog.String("token", t.Token), slog.Any("error", err))
				continue
			}
			if !deleted {
				continue
			}
			removedInBatch++
			if t.LocalPath != "" {
				if err := os.Remove(t.LocalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
					s.logger.Warn("remove expired transfer file failed", slog.String("path", t.LocalPath), slog.Any("error", err))
				}
			}
		}
		purged += removedInBatch
		if removedInBatch == 0 || len(items) < purgeBatchSize {
			if purged > 0 {
				s.logger.Info("expired transfers purged", slog.Int("count", purged))
			}
			return purged, nil
		}
	}
}
