package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/transfers"
)

// TransferStore is an in-memory transfers.Store. Finalization creates the
// entry in the linked EntryStore under the transfer lock.
type TransferStore struct {
	mu      sync.Mutex
	items   map[string]transfers.Transfer
	entries *EntryStore
}

// NewTransferStore creates an empty store that finalizes into es.
func NewTransferStore(es *EntryStore) *TransferStore {
	return &TransferStore{items: map[string]transfers.Transfer{}, entries: es}
}

// Put inserts or replaces a transfer as-is.
func (s *TransferStore) Put(t transfers.Transfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.Token] = t
}

func (s *TransferStore) CreateTransfer(_ context.Context, params transfers.CreateParams) (transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := transfers.Transfer{
		Token:            params.Token,
		Owner:            params.Owner,
		SizeBytes:        params.SizeBytes,
		DurationSeconds:  params.DurationSeconds,
		OriginalFilename: params.OriginalFilename,
		ExpiresAt:        params.ExpiresAt,
		CreatedAt:        time.Now(),
	}
	s.items[t.Token] = t
	return t, nil
}

func (s *TransferStore) GetTransfer(_ context.Context, token string) (transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[token]
	if !ok {
		return transfers.Transfer{}, transfers.ErrTransferNotFound
	}
	return t, nil
}

func (s *TransferStore) MarkTransferComplete(_ context.Context, token, localPath string) (transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[token]
	if !ok {
		return transfers.Transfer{}, transfers.ErrTransferNotFound
	}
	if t.Finalized {
		return t, transfers.ErrAlreadyFinalized
	}
	t.TransferComplete = true
	t.LocalPath = localPath
	s.items[token] = t
	return t, nil
}

func (s *TransferStore) FinalizeTransfer(ctx context.Context, token string, build transfers.BuildEntryFunc) (transfers.Transfer, entries.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[token]
	if !ok {
		return transfers.Transfer{}, entries.Entry{}, transfers.ErrTransferNotFound
	}
	params, err := build(t)
	if err != nil {
		return transfers.Transfer{}, entries.Entry{}, err
	}
	if !t.TransferComplete || t.Finalized {
		return transfers.Transfer{}, entries.Entry{}, transfers.ErrAlreadyFinalized
	}
	entry, err := s.entries.CreateEntry(ctx, params)
	if err != nil {
		return transfers.Transfer{}, entries.Entry{}, err
	}
	t.Finalized = true
	t.EntryID = entry.ID
	s.items[token] = t
	return t, entry, nil
}

func (s *TransferStore) ListExpiredTransfers(_ context.Context, now time.Time, limit int) ([]transfers.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []transfers.Transfer
	for _, t := range s.items {
		if !t.Finalized && t.ExpiresAt.Before(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TransferStore) DeleteTransfer(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[token]
	if !ok || t.Finalized {
		return false, nil
	}
	delete(s.items, token)
	return true, nil
}
