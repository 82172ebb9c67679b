package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivecast/ingestd/internal/jobs"
)

// JobStore is an in-memory jobs.Store that enforces one live job per key.
type JobStore struct {
	mu    sync.Mutex
	items []jobs.Job

	// BeforeInsert, when set, runs before each insert outside the lock.
	BeforeInsert func()
}

// NewJobStore creates an empty store.
func NewJobStore() *JobStore {
	return &JobStore{}
}

// ForKey returns every job recorded for (owner, permlink).
func (s *JobStore) ForKey(owner, permlink string) []jobs.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []jobs.Job
	for _, j := range s.items {
		if j.Owner == owner && j.Permlink == permlink {
			out = append(out, j)
		}
	}
	return out
}

// SetStatus overwrites the status of a job, standing in for an encoder worker.
func (s *JobStore) SetStatus(id string, status jobs.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Status = status
		}
	}
}

func (s *JobStore) InsertJob(_ context.Context, owner, permlink string, input jobs.Input) (jobs.Job, error) {
	if s.BeforeInsert != nil {
		s.BeforeInsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveLocked(owner, permlink, "") {
		return jobs.Job{}, jobs.ErrJobExists
	}
	now := time.Now()
	j := jobs.Job{
		ID:        uuid.NewString(),
		Owner:     owner,
		Permlink:  permlink,
		Status:    jobs.StatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.items = append(s.items, j)
	return j, nil
}

func (s *JobStore) GetJob(_ context.Context, id string) (jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.items {
		if j.ID == id {
			return j, nil
		}
	}
	return jobs.Job{}, jobs.ErrJobNotFound
}

func (s *JobStore) LatestJobForKey(_ context.Context, owner, permlink string) (jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  jobs.Job
		found bool
	)
	for i := len(s.items) - 1; i >= 0; i-- {
		j := s.items[i]
		if j.Owner != owner || j.Permlink != permlink {
			continue
		}
		if j.Status.Active() {
			return j, nil
		}
		if !found {
			best, found = j, true
		}
	}
	if !found {
		return jobs.Job{}, jobs.ErrJobNotFound
	}
	return best, nil
}

func (s *JobStore) RequeueJob(_ context.Context, id string) (jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.items {
		if j.ID != id {
			continue
		}
		if j.Status != jobs.StatusFailed && j.Status != jobs.StatusCancelled {
			return jobs.Job{}, jobs.ErrJobNotRetryable
		}
		if s.liveLocked(j.Owner, j.Permlink, id) {
			return jobs.Job{}, jobs.ErrJobExists
		}
		j.Status = jobs.StatusQueued
		j.Progress = jobs.Progress{}
		j.LastError = ""
		j.Attempts++
		j.UpdatedAt = time.Now()
		s.items[i] = j
		return j, nil
	}
	return jobs.Job{}, jobs.ErrJobNotFound
}

func (s *JobStore) CancelJob(_ context.Context, id string) (jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.items {
		if j.ID != id {
			continue
		}
		if !j.Status.Active() {
			return jobs.Job{}, jobs.ErrJobNotCancellable
		}
		j.Status = jobs.StatusCancelled
		j.UpdatedAt = time.Now()
		s.items[i] = j
		return j, nil
	}
	return jobs.Job{}, jobs.ErrJobNotFound
}

func (s *JobStore) liveLocked(owner, permlink, exceptID string) bool {
	for _, j := range s.items {
		if j.ID != exceptID && j.Owner == owner && j.Permlink == permlink && j.Status.Active() {
			return true
		}
	}
	return false
}
