// Package intake starts uploads for both intake flows and finalizes upload-first transfers.
package intake

import (
	"fmt"
	"time"

	"github.com/hivecast/ingestd/internal/completion"
)

// ValidationError rejects input before any record is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Limits bound the declared size and duration of an upload.
type Limits struct {
	MinBytes       int64
	MaxBytes       int64
	MinDurationSec float64
	MaxDurationSec float64
}

// DefaultLimits accepts 1KB..8GB and 0.1s..6h.
var DefaultLimits = Limits{
	MinBytes:       1 << 10,
	MaxBytes:       8 << 30,
	MinDurationSec: 0.1,
	MaxDurationSec: 21600,
}

const (
	maxTitleLength    = 256
	maxFilenameLength = 255
	maxTags           = 16
)

// DeclaredMetadata is what a client declares when starting a metadata-first upload.
type DeclaredMetadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	OriginalFilename string   `json:"original_filename"`
	SizeBytes        int64    `json:"size_bytes"`
	DurationSeconds  float64  `json:"duration_seconds"`
}

// UserMetadata is supplied when finalizing an upload-first transfer.
type UserMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Target tells the client where to send the bytes and which metadata to attach.
type Target struct {
	Endpoint string            `json:"endpoint"`
	Metadata map[string]string `json:"metadata"`
}

// MetadataFirstTicket is returned by BeginMetadataFirst.
type MetadataFirstTicket struct {
	EntryID  string `json:"entry_id"`
	Owner    string `json:"owner"`
	Permlink string `json:"permlink"`
	Target   Target `json:"target"`
}

// UploadFirstTicket is returned by BeginUploadFirst.
type UploadFirstTicket struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Target    Target    `json:"target"`
}

// FinalizeResult is returned by Finalize. EntryID is set whenever an entry was
// created, even if the completion step then failed.
type FinalizeResult struct {
	EntryID string              `json:"entry_id"`
	Outcome *completion.Outcome `json:"outcome,omitempty"`
}
