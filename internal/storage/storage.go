// Package storage uploads media to content-addressed nodes with primary/fallback failover.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hivecast/ingestd/internal/entries"
)

// ErrTooLarge is returned when the local file exceeds the upload ceiling.
// It is permanent: retrying the same file cannot succeed.
var ErrTooLarge = errors.New("file exceeds upload size limit")

// ErrEmptyContentID is returned when a node accepted a request but named no content id.
var ErrEmptyContentID = errors.New("storage node response has no content id")

// Node abstracts one content-addressed storage node.
type Node interface {
	// Add uploads and pins the content read from r, returning its content id.
	Add(ctx context.Context, name string, r io.Reader) (string, error)
	// Unpin releases the pin on contentID.
	Unpin(ctx context.Context, contentID string) error
}

// Result describes a stored object.
type Result struct {
	ContentID  string
	Origin     entries.Origin
	GatewayURL string
	SizeBytes  int64
}

// Ref converts the result into the entry storage reference.
func (r Result) Ref() entries.StorageRef {
	return entries.StorageRef{
		ContentID:  r.ContentID,
		Origin:     r.Origin,
		GatewayURL: r.GatewayURL,
	}
}

// UploadFailedError carries both causes when the primary and fallback uploads failed.
// The local file is left in place so the upload can be retried.
type UploadFailedError struct {
	Primary  error
	Fallback error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("storage upload failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *UploadFailedError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// GatewayURL joins a gateway base and a content id.
func GatewayURL(base, contentID string) string {
	return strings.TrimRight(base, "/") + "/ipfs/" + contentID
}
