package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/metrics"
)

// Endpoint pairs a node with the public gateway serving its content.
type Endpoint struct {
	Node    Node
	Gateway string
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Primary       Endpoint
	Fallback      Endpoint
	UploadTimeout time.Duration
	MaxBytes      int64
}

// Engine uploads local files to the primary node and falls back once on failure.
type Engine struct {
	logger  *slog.Logger
	primary Endpoint
	backup  Endpoint
	timeout time.Duration
	max     int64
	metrics *metrics.Metrics
}

// NewEngine creates a storage engine. m may be nil.
func NewEngine(log *slog.Logger, cfg EngineConfig, m *metrics.Metrics) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		logger:  log.With(slog.String("service", "storage")),
		primary: cfg.Primary,
		backup:  cfg.Fallback,
		timeout: cfg.UploadTimeout,
		max:     cfg.MaxBytes,
		metrics: m,
	}
}

// Upload stores the file at localPath. Each node gets its own timeout and a fresh
// read of the file. The local file is never removed here.
func (e *Engine) Upload(ctx context.Context, localPath string) (Result, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat upload: %w", err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("stat upload: %s is a directory", localPath)
	}
	if e.max > 0 && info.Size() > e.max {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	cid, primaryErr := e.attempt(ctx, e.primary.Node, localPath)
	if primaryErr == nil {
		return e.stored(entries.OriginPrimary, e.primary.Gateway, cid, info.Size()), nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	e.logger.Warn("primary upload failed, trying fallback",
		slog.String("path", localPath),
		slog.Any("error", primaryErr),
	)

	cid, fallbackErr := e.attempt(ctx, e.backup.Node, localPath)
	if fallbackErr == nil {
		return e.stored(entries.OriginFallback, e.backup.Gateway, cid, info.Size()), nil
	}
	e.metrics.StorageFailed()
	e.logger.Error("storage upload failed on both nodes",
		slog.String("path", localPath),
		slog.Any("primary_error", primaryErr),
		slog.Any("fallback_error", fallbackErr),
	)
	return Result{}, &UploadFailedError{Primary: primaryErr, Fallback: fallbackErr}
}

func (e *Engine) attempt(ctx context.Context, node Node, localPath string) (string, error) {
	if node == nil {
		return "", errors.New("storage node not configured")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return node.Add(ctx, filepath.Base(localPath), f)
}

func (e *Engine) stored(origin entries.Origin, gateway, cid string, size int64) Result {
	e.metrics.StorageUploaded(string(origin))
	e.logger.Info("stored upload",
		slog.String("origin", string(origin)),
		slog.String("content_id", cid),
	)
	return Result{
		ContentID:  cid,
		Origin:     origin,
		GatewayURL: GatewayURL(gateway, cid),
		SizeBytes:  size,
	}
}

// Unpin releases contentID on the node it was stored on.
func (e *Engine) Unpin(ctx context.Context, origin entries.Origin, contentID string) error {
	var node Node
	switch origin {
	case entries.OriginPrimary:
		node = e.primary.Node
	case entries.OriginFallback:
		node = e.backup.Node
	default:
		return fmt.Errorf("unknown storage origin %q", origin)
	}
	if node == nil {
		return errors.New("storage node not configured")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return node.Unpin(ctx, contentID)
}
