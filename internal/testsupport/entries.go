package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivecast/ingestd/internal/entries"
)

// EntryStore is an in-memory entries.Store with the same guarded transitions
// as the SQL queries.
type EntryStore struct {
	mu    sync.Mutex
	items map[string]entries.Entry
	now   func() time.Time

	// Stored counts successful MarkEntryStored calls.
	Stored int
}

// NewEntryStore creates an empty store.
func NewEntryStore() *EntryStore {
	return &EntryStore{items: map[string]entries.Entry{}, now: time.Now}
}

// Put inserts or replaces an entry as-is. Used to seed published entries.
func (s *EntryStore) Put(e entries.Entry) entries.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	s.items[e.ID] = e
	return e
}

// All returns every entry, oldest first.
func (s *EntryStore) All() []entries.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entries.Entry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *EntryStore) CreateEntry(_ context.Context, params entries.CreateParams) (entries.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.Permlink == params.Permlink {
			return entries.Entry{}, entries.ErrPermlinkTaken
		}
	}
	meta := params.Metadata
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	now := s.now()
	e := entries.Entry{
		ID:        uuid.NewString(),
		Owner:     params.Owner,
		Permlink:  params.Permlink,
		Metadata:  meta,
		State:     entries.Created{LocalFile: params.LocalFile},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *EntryStore) GetEntry(_ context.Context, id string) (entries.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return entries.Entry{}, entries.ErrEntryNotFound
	}
	return e, nil
}

func (s *EntryStore) ListEntriesByOwner(_ context.Context, owner string, limit int) ([]entries.Entry, error) {
	var out []entries.Entry
	for _, e := range s.All() {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *EntryStore) SetEntryLocalFile(_ context.Context, id, localFile string) (entries.Entry, error) {
	return s.update(id, func(e entries.Entry) (entries.State, bool) {
		if _, ok := e.State.(entries.Created); !ok {
			return nil, false
		}
		return entries.Created{LocalFile: localFile}, true
	})
}

func (s *EntryStore) MarkEntryStored(_ context.Context, id string, ref entries.StorageRef) (entries.Entry, error) {
	return s.update(id, func(e entries.Entry) (entries.State, bool) {
		if _, ok := e.State.(entries.Created); !ok {
			return nil, false
		}
		s.Stored++
		return entries.StoragePending{Storage: ref}, true
	})
}

func (s *EntryStore) MarkEntryDispatched(_ context.Context, id, jobID string) (entries.Entry, error) {
	return s.update(id, func(e entries.Entry) (entries.State, bool) {
		pending, ok := e.State.(entries.StoragePending)
		if !ok {
			return nil, false
		}
		return entries.Dispatched{Storage: pending.Storage, JobID: jobID}, true
	})
}

func (s *EntryStore) MarkEntryFailed(_ context.Context, id, reason string) (entries.Entry, error) {
	return s.update(id, func(e entries.Entry) (entries.State, bool) {
		if e.State.Status().Terminal() {
			return nil, false
		}
		failed := entries.Failed{Reason: reason, JobID: e.JobID()}
		if ref, ok := e.Storage(); ok {
			failed.Storage = &ref
		}
		return failed, true
	})
}

func (s *EntryStore) ListEvictionCandidates(_ context.Context, olderThan time.Time, after entries.EvictionCursor, limit int) ([]entries.Entry, error) {
	var out []entries.Entry
	for _, e := range s.All() {
		if after.Before(e) {
			continue
		}
		p, ok := e.State.(entries.Published)
		if !ok || p.EvictionEligible || p.Storage.Origin != entries.OriginFallback {
			continue
		}
		if !e.CreatedAt.Before(olderThan) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *EntryStore) MarkEvictionEligible(_ context.Context, id string) (bool, error) {
	_, err := s.update(id, func(e entries.Entry) (entries.State, bool) {
		p, ok := e.State.(entries.Published)
		if !ok || p.EvictionEligible || p.Storage.Origin != entries.OriginFallback {
			return nil, false
		}
		p.EvictionEligible = true
		return p, true
	})
	if err == entries.ErrInvalidTransition {
		return false, nil
	}
	return err == nil, err
}

func (s *EntryStore) update(id string, next func(entries.Entry) (entries.State, bool)) (entries.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return entries.Entry{}, entries.ErrEntryNotFound
	}
	state, ok := next(e)
	if !ok {
		return entries.Entry{}, entries.ErrInvalidTransition
	}
	e.State = state
	e.UpdatedAt = s.now()
	s.items[id] = e
	return e, nil
}
