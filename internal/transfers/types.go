// Package transfers tracks upload-first transfers until they are finalized into entries.
package transfers

import (
	"errors"
	"time"
)

var (
	// ErrTransferNotFound is returned for unknown or expired transfer tokens.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrUploadNotReady is returned when finalize runs before the transfer completed.
	ErrUploadNotReady = errors.New("upload not complete yet")
	// ErrAlreadyFinalized is returned when the transfer was already turned into an entry.
	ErrAlreadyFinalized = errors.New("transfer already finalized")
)

// Transfer is a pending upload-first transfer. Once Finalized it never changes again.
type Transfer struct {
	Token            string    `json:"token"`
	Owner            string    `json:"owner"`
	SizeBytes        int64     `json:"size_bytes"`
	DurationSeconds  float64   `json:"duration_seconds"`
	OriginalFilename string    `json:"original_filename"`
	TransferComplete bool      `json:"transfer_complete"`
	Finalized        bool      `json:"finalized"`
	LocalPath        string    `json:"-"`
	EntryID          string    `json:"entry_id,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Expired reports whether an unfinalized transfer outlived its expiry at now.
// Finalized transfers never expire.
func (t Transfer) Expired(now time.Time) bool {
	return !t.Finalized && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// CreateParams are the fields needed to open a transfer.
type CreateParams struct {
	Token            string
	Owner            string
	SizeBytes        int64
	DurationSeconds  float64
	OriginalFilename string
	ExpiresAt        time.Time
}
