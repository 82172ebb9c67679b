// Package jobs creates and reads processing-job records consumed by the encoder workers.
package jobs

import (
	"errors"
	"time"
)

var (
	// ErrJobNotFound is returned when no job matches the id or key.
	ErrJobNotFound = errors.New("processing job not found")
	// ErrJobExists is returned when a live job already holds the (owner, permlink) key.
	ErrJobExists = errors.New("active processing job already exists for key")
	// ErrJobNotRetryable is returned when retry is requested for a job that is not failed or cancelled.
	ErrJobNotRetryable = errors.New("processing job is not failed or cancelled")
	// ErrJobNotCancellable is returned when cancel is requested for a job that already finished.
	ErrJobNotCancellable = errors.New("processing job already finished")
)

// Status is the processing-job state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Active reports whether the job still occupies its (owner, permlink) key.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusRunning
}

// Input is what the encoder fetches.
type Input struct {
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// Progress is reported by the encoder workers.
type Progress struct {
	Percent float64 `json:"percent"`
	Stage   string  `json:"stage,omitempty"`
}

// Job is one processing request.
type Job struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Permlink  string    `json:"permlink"`
	Status    Status    `json:"status"`
	Input     Input     `json:"input"`
	Progress  Progress  `json:"progress"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
