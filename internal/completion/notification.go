package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/transfers"
)

var (
	// ErrMetadataMismatch is returned when the owner or permlink of a notification
	// does not match the entry it names.
	ErrMetadataMismatch = errors.New("notification metadata does not match entry")
	// ErrUnknownNotification is returned when the metadata names neither an entry nor a transfer.
	ErrUnknownNotification = errors.New("notification metadata names neither an entry nor a transfer")
)

// Metadata keys carried by the transfer protocol.
const (
	MetaVideoID  = "video_id"
	MetaOwner    = "owner"
	MetaPermlink = "permlink"
	MetaUploadID = "upload_id"
)

// Kind names the intake flow a notification belongs to.
type Kind string

const (
	KindMetadataFirst Kind = "metadata_first"
	KindUploadFirst   Kind = "upload_first"
)

// Notification is a transfer-completion event.
type Notification struct {
	TransferID string
	LocalPath  string
	SizeBytes  int64
	Metadata   map[string]string
}

// RouteResult reports how a notification was handled.
type RouteResult struct {
	Kind     Kind                `json:"kind"`
	Outcome  *Outcome            `json:"outcome,omitempty"`
	Transfer *transfers.Transfer `json:"transfer,omitempty"`
	// Duplicate is set for a notification about a transfer that was already finalized.
	Duplicate bool `json:"duplicate,omitempty"`
}

// EntryReader loads entries.
type EntryReader interface {
	GetEntry(ctx context.Context, id string) (entries.Entry, error)
}

// TransferCompleter records upload-first transfer completion.
type TransferCompleter interface {
	MarkComplete(ctx context.Context, token, localPath string) (transfers.Transfer, error)
}

// Router dispatches completion notifications to the flow named by their metadata.
type Router struct {
	entries   EntryReader
	transfers TransferCompleter
	processor *Processor
	logger    *slog.Logger
}

// NewRouter creates a notification router.
func NewRouter(log *slog.Logger, entryReader EntryReader, completer TransferCompleter, processor *Processor) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		entries:   entryReader,
		transfers: completer,
		processor: processor,
		logger:    log.With(slog.String("service", "completion_router")),
	}
}

// Route handles one notification. Metadata-first notifications run the
// completion pipeline; upload-first notifications only mark the transfer complete.
func (r *Router) Route(ctx context.Context, n Notification) (RouteResult, error) {
	if strings.TrimSpace(n.LocalPath) == "" {
		return RouteResult{}, errors.New("notification has no local path")
	}
	meta := n.Metadata
	switch {
	case strings.TrimSpace(meta[MetaVideoID]) != "":
		return r.routeMetadataFirst(ctx, n)
	case strings.TrimSpace(meta[MetaUploadID]) != "":
		return r.routeUploadFirst(ctx, n)
	default:
		return RouteResult{}, ErrUnknownNotification
	}
}

func (r *Router) routeMetadataFirst(ctx context.Context, n Notification) (RouteResult, error) {
	id := strings.TrimSpace(n.Metadata[MetaVideoID])
	entry, err := r.entries.GetEntry(ctx, id)
	if err != nil {
		return RouteResult{}, err
	}
	owner := strings.TrimSpace(n.Metadata[MetaOwner])
	permlink := strings.TrimSpace(n.Metadata[MetaPermlink])
	if owner != entry.Owner || permlink != entry.Permlink {
		r.logger.Warn("notification metadata mismatch",
			slog.String("entry_id", entry.ID),
			slog.String("owner", owner),
			slog.String("permlink", permlink),
		)
		return RouteResult{}, fmt.Errorf("%w: entry %s", ErrMetadataMismatch, entry.ID)
	}
	outcome, err := r.processor.Process(ctx, entry.ID, n.LocalPath)
	if err != nil {
		return RouteResult{Kind: KindMetadataFirst}, err
	}
	return RouteResult{Kind: KindMetadataFirst, Outcome: &outcome}, nil
}

func (r *Router) routeUploadFirst(ctx context.Context, n Notification) (RouteResult, error) {
	token := strings.TrimSpace(n.Metadata[MetaUploadID])
	t, err := r.transfers.MarkComplete(ctx, token, n.LocalPath)
	if errors.Is(err, transfers.ErrAlreadyFinalized) {
		// Redelivery after finalize; the finalizer owns the file now.
		r.logger.Info("notification for finalized transfer ignored", slog.String("token", token))
		return RouteResult{Kind: KindUploadFirst, Transfer: &t, Duplicate: true}, nil
	}
	if err != nil {
		return RouteResult{Kind: KindUploadFirst}, err
	}
	return RouteResult{Kind: KindUploadFirst, Transfer: &t}, nil
}
