package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTaskNotFound is returned when no task is registered under the name.
	ErrTaskNotFound = errors.New("scheduled task not found")
	// ErrTaskExists is returned when a task name is registered twice.
	ErrTaskExists = errors.New("scheduled task already registered")
)

// Task is a named periodic job.
type Task struct {
	Name    string
	Pattern string
	Run     func(ctx context.Context) error
}

// Info describes a registered task.
type Info struct {
	Name    string    `json:"name"`
	Pattern string    `json:"pattern"`
	Next    time.Time `json:"next"`
	Prev    time.Time `json:"prev,omitempty"`
}

// ListResponse is the JSON shape of the task listing.
type ListResponse struct {
	Items []Info `json:"items"`
}
