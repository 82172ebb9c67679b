package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/transfers"
)

// EntryCreator creates entries under fresh permlinks.
type EntryCreator interface {
	Create(ctx context.Context, owner string, meta entries.Metadata, localFile string) (entries.Entry, error)
}

// TransferCreator opens pending transfers.
type TransferCreator interface {
	CreateTransfer(ctx context.Context, params transfers.CreateParams) (transfers.Transfer, error)
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Endpoint    string
	TransferTTL time.Duration
	Limits      Limits
}

// Coordinator creates the initial record for either intake flow.
type Coordinator struct {
	entries   EntryCreator
	transfers TransferCreator
	endpoint  string
	ttl       time.Duration
	limits    Limits
	now       func() time.Time
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator. A zero Limits uses DefaultLimits.
func NewCoordinator(log *slog.Logger, cfg CoordinatorConfig, entryCreator EntryCreator, transferCreator TransferCreator) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	limits := cfg.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	ttl := cfg.TransferTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Coordinator{
		entries:   entryCreator,
		transfers: transferCreator,
		endpoint:  cfg.Endpoint,
		ttl:       ttl,
		limits:    limits,
		now:       time.Now,
		logger:    log.With(slog.String("service", "intake")),
	}
}

// BeginMetadataFirst validates the declared metadata and creates the entry up
// front. The returned metadata must travel with the transfer.
func (c *Coordinator) BeginMetadataFirst(ctx context.Context, owner string, meta DeclaredMetadata) (MetadataFirstTicket, error) {
	owner = strings.TrimSpace(owner)
	if err := c.limits.check(owner, meta.SizeBytes, meta.DurationSeconds); err != nil {
		return MetadataFirstTicket{}, err
	}
	if strings.TrimSpace(meta.Title) == "" {
		return MetadataFirstTicket{}, invalid("title", "is required")
	}
	if err := checkDescriptive(meta.Title, meta.Tags); err != nil {
		return MetadataFirstTicket{}, err
	}
	if meta.OriginalFilename != "" {
		if err := checkFilename(meta.OriginalFilename); err != nil {
			return MetadataFirstTicket{}, err
		}
	}

	entry, err := c.entries.Create(ctx, owner, entries.Metadata{
		Title:            strings.TrimSpace(meta.Title),
		Description:      meta.Description,
		Tags:             cleanTags(meta.Tags),
		OriginalFilename: strings.TrimSpace(meta.OriginalFilename),
		SizeBytes:        meta.SizeBytes,
		DurationSeconds:  meta.DurationSeconds,
	}, "")
	if err != nil {
		return MetadataFirstTicket{}, fmt.Errorf("create entry: %w", err)
	}
	c.logger.Info("metadata-first upload started",
		slog.String("entry_id", entry.ID),
		slog.String("owner", owner),
		slog.String("size", humanize.IBytes(uint64(meta.SizeBytes))),
	)
	return MetadataFirstTicket{
		EntryID:  entry.ID,
		Owner:    entry.Owner,
		Permlink: entry.Permlink,
		Target: Target{
			Endpoint: c.endpoint,
			Metadata: map[string]string{
				completion.MetaVideoID:  entry.ID,
				completion.MetaOwner:    entry.Owner,
				completion.MetaPermlink: entry.Permlink,
			},
		},
	}, nil
}

// BeginUploadFirst validates the declared file and opens a pending transfer
// that expires after the configured TTL unless finalized.
func (c *Coordinator) BeginUploadFirst(ctx context.Context, owner string, size int64, duration float64, filename string) (UploadFirstTicket, error) {
	owner = strings.TrimSpace(owner)
	if err := c.limits.check(owner, size, duration); err != nil {
		return UploadFirstTicket{}, err
	}
	if err := checkFilename(filename); err != nil {
		return UploadFirstTicket{}, err
	}

	t, err := c.transfers.CreateTransfer(ctx, transfers.CreateParams{
		Token:            uuid.NewString(),
		Owner:            owner,
		SizeBytes:        size,
		DurationSeconds:  duration,
		OriginalFilename: strings.TrimSpace(filename),
		ExpiresAt:        c.now().Add(c.ttl).UTC(),
	})
	if err != nil {
		return UploadFirstTicket{}, fmt.Errorf("create transfer: %w", err)
	}
	c.logger.Info("upload-first transfer started",
		slog.String("token", t.Token),
		slog.String("owner", owner),
		slog.String("size", humanize.IBytes(uint64(size))),
	)
	return UploadFirstTicket{
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		Target: Target{
			Endpoint: c.endpoint,
			Metadata: map[string]string{completion.MetaUploadID: t.Token},
		},
	}, nil
}
