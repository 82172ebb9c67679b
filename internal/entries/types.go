// Package entries models media entries and their forward-only lifecycle.
package entries

import (
	"errors"
	"time"
)

// ErrEntryNotFound is returned when no entry matches the requested id.
var ErrEntryNotFound = errors.New("entry not found")

// ErrInvalidTransition is returned when a guarded state update matches no row,
// i.e. the entry is not in the state the transition starts from.
var ErrInvalidTransition = errors.New("invalid entry state transition")

// Status names a lifecycle stage as persisted.
type Status string

const (
	StatusCreated        Status = "created"
	StatusStoragePending Status = "storage_pending"
	StatusDispatched     Status = "dispatched"
	StatusPublished      Status = "published"
	StatusPublishManual  Status = "publish_manual"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusPublished, StatusPublishManual, StatusFailed:
		return true
	}
	return false
}

// Origin records which storage node accepted an upload.
type Origin string

const (
	OriginPrimary  Origin = "primary"
	OriginFallback Origin = "fallback"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	return o == OriginPrimary || o == OriginFallback
}

// StorageRef identifies the stored object for an entry.
type StorageRef struct {
	ContentID  string `json:"content_id"`
	Origin     Origin `json:"origin"`
	GatewayURL string `json:"gateway_url"`
}

// State is the lifecycle variant of an entry. Each implementation carries only
// the fields that exist at that stage.
type State interface {
	Status() Status
	isState()
}

// Created is a new entry whose bytes are still local (or not yet transferred).
type Created struct {
	LocalFile string
}

// StoragePending entries have been stored but no job is attached yet.
type StoragePending struct {
	Storage StorageRef
}

// Dispatched entries have a storage object and a processing job.
type Dispatched struct {
	Storage StorageRef
	JobID   string
}

// Published entries were processed and published by the downstream workers.
type Published struct {
	Storage          StorageRef
	JobID            string
	EvictionEligible bool
}

// PublishManual entries were processed but need a manual publish step.
type PublishManual struct {
	Storage StorageRef
	JobID   string
}

// Failed entries stopped somewhere along the pipeline. Storage and JobID are
// set only if the entry got that far.
type Failed struct {
	Reason  string
	Storage *StorageRef
	JobID   string
}

func (Created) Status() Status        { return StatusCreated }
func (StoragePending) Status() Status { return StatusStoragePending }
func (Dispatched) Status() Status     { return StatusDispatched }
func (Published) Status() Status      { return StatusPublished }
func (PublishManual) Status() Status  { return StatusPublishManual }
func (Failed) Status() Status         { return StatusFailed }

func (Created) isState()        {}
func (StoragePending) isState() {}
func (Dispatched) isState()     {}
func (Published) isState()      {}
func (PublishManual) isState()  {}
func (Failed) isState()         {}

// Metadata is the descriptive part of an entry.
type Metadata struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Tags             []string `json:"tags"`
	OriginalFilename string   `json:"original_filename"`
	SizeBytes        int64    `json:"size_bytes"`
	DurationSeconds  float64  `json:"duration_seconds"`
}

// Entry is one media asset, identified by (owner, permlink).
type Entry struct {
	ID        string
	Owner     string
	Permlink  string
	Metadata  Metadata
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Storage returns the stored object, if the entry has one.
func (e Entry) Storage() (StorageRef, bool) {
	switch s := e.State.(type) {
	case StoragePending:
		return s.Storage, true
	case Dispatched:
		return s.Storage, true
	case Published:
		return s.Storage, true
	case PublishManual:
		return s.Storage, true
	case Failed:
		if s.Storage != nil {
			return *s.Storage, true
		}
	}
	return StorageRef{}, false
}

// JobID returns the attached processing job id, or "".
func (e Entry) JobID() string {
	switch s := e.State.(type) {
	case Dispatched:
		return s.JobID
	case Published:
		return s.JobID
	case PublishManual:
		return s.JobID
	case Failed:
		return s.JobID
	}
	return ""
}

// LocalFile returns the local-file reference of a created entry, or "".
func (e Entry) LocalFile() string {
	if s, ok := e.State.(Created); ok {
		return s.LocalFile
	}
	return ""
}

// Processed reports whether the entry already has both a storage object and a job.
func (e Entry) Processed() bool {
	_, stored := e.Storage()
	return stored && e.JobID() != ""
}

// EvictionEligible reports whether the fallback copy was already unpinned.
func (e Entry) EvictionEligible() bool {
	s, ok := e.State.(Published)
	return ok && s.EvictionEligible
}

// EvictionCursor is the (created_at, id) position of the last candidate seen.
// The zero cursor starts from the oldest candidate.
type EvictionCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAfter returns the cursor positioned at e.
func CursorAfter(e Entry) EvictionCursor {
	return EvictionCursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

func (c EvictionCursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// Before reports whether e sorts at or before the cursor.
func (c EvictionCursor) Before(e Entry) bool {
	if c.IsZero() {
		return false
	}
	if !e.CreatedAt.Equal(c.CreatedAt) {
		return e.CreatedAt.Before(c.CreatedAt)
	}
	return e.ID <= c.ID
}

// CreateParams are the fields needed to insert a new entry.
type CreateParams struct {
	Owner     string
	Permlink  string
	Metadata  Metadata
	LocalFile string
}

// View is the JSON shape of an entry returned by the API.
type View struct {
	ID               string    `json:"id"`
	Owner            string    `json:"owner"`
	Permlink         string    `json:"permlink"`
	Status           Status    `json:"status"`
	Metadata         Metadata  `json:"metadata"`
	ContentID        string    `json:"content_id,omitempty"`
	Origin           Origin    `json:"origin,omitempty"`
	GatewayURL       string    `json:"gateway_url,omitempty"`
	JobID            string    `json:"job_id,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	EvictionEligible bool      `json:"eviction_eligible"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToView flattens the entry for JSON output.
func (e Entry) ToView() View {
	v := View{
		ID:               e.ID,
		Owner:            e.Owner,
		Permlink:         e.Permlink,
		Metadata:         e.Metadata,
		JobID:            e.JobID(),
		EvictionEligible: e.EvictionEligible(),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.State != nil {
		v.Status = e.State.Status()
	}
	if ref, ok := e.Storage(); ok {
		v.ContentID = ref.ContentID
		v.Origin = ref.Origin
		v.GatewayURL = ref.GatewayURL
	}
	if f, ok := e.State.(Failed); ok {
		v.FailureReason = f.Reason
	}
	return v
}
