package entries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	permlinkAttempts = 3
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service creates and reads entries.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates an entry service over the given store.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "entries")),
	}
}

// Create inserts a new entry in state created under a freshly generated permlink,
// regenerating the permlink on collision.
func (s *Service) Create(ctx context.Context, owner string, meta Metadata, localFile string) (Entry, error) {
	var lastErr error
	for attempt := 0; attempt < permlinkAttempts; attempt++ {
		entry, err := s.store.CreateEntry(ctx, CreateParams{
			Owner:     owner,
			Permlink:  NewPermlink(),
			Metadata:  meta,
			LocalFile: localFile,
		})
		if err == nil {
			s.logger.Info("entry created",
				slog.String("entry_id", entry.ID),
				slog.String("owner", entry.Owner),
				slog.String("permlink", entry.Permlink),
			)
			return entry, nil
		}
		if !errors.Is(err, ErrPermlinkTaken) {
			return Entry{}, err
		}
		lastErr = err
		s.logger.Warn("permlink collision, regenerating", slog.Int("attempt", attempt+1))
	}
	return Entry{}, fmt.Errorf("create entry: %w", lastErr)
}

// Get returns the entry with the given id.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	if strings.TrimSpace(id) == "" {
		return Entry{}, ErrEntryNotFound
	}
	return s.store.GetEntry(ctx, strings.TrimSpace(id))
}

// ListByOwner returns the newest entries of an owner. Limits outside 1..200 fall back to 50.
func (s *Service) ListByOwner(ctx context.Context, owner string, limit int) ([]Entry, error) {
	if err := ValidateHandle(owner); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return s.store.ListEntriesByOwner(ctx, owner, limit)
}
