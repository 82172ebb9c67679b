package transfers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hivecast/ingestd/internal/db"
	"github.com/hivecast/ingestd/internal/db/sqlc"
	"github.com/hivecast/ingestd/internal/entries"
)

// BuildEntryFunc inspects the locked transfer and returns the entry to create for it.
// Returning an error aborts finalization without any mutation.
type BuildEntryFunc func(t Transfer) (entries.CreateParams, error)

// Store persists pending transfers.
type Store interface {
	CreateTransfer(ctx context.Context, params CreateParams) (Transfer, error)
	GetTransfer(ctx context.Context, token string) (Transfer, error)
	// MarkTransferComplete fails with ErrAlreadyFinalized once the transfer is finalized.
	MarkTransferComplete(ctx context.Context, token, localPath string) (Transfer, error)
	// FinalizeTransfer atomically creates the entry returned by build and links it to the transfer.
	FinalizeTransfer(ctx context.Context, token string, build BuildEntryFunc) (Transfer, entries.Entry, error)
	ListExpiredTransfers(ctx context.Context, now time.Time, limit int) ([]Transfer, error)
	DeleteTransfer(ctx context.Context, token string) (bool, error)
}

// TxBeginner starts transactions; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PGStore implements Store on the generated queries.
type PGStore struct {
	pool    TxBeginner
	queries *sqlc.Queries
}

// NewStore creates a Postgres-backed transfer store.
func NewStore(pool TxBeginner, queries *sqlc.Queries) *PGStore {
	return &PGStore{pool: pool, queries: queries}
}

func (s *PGStore) CreateTransfer(ctx context.Context, params CreateParams) (Transfer, error) {
	row, err := s.queries.CreatePendingTransfer(ctx, sqlc.CreatePendingTransferParams{
		Token:            params.Token,
		Owner:            params.Owner,
		SizeBytes:        params.SizeBytes,
		DurationSeconds:  params.DurationSeconds,
		OriginalFilename: params.OriginalFilename,
		ExpiresAt:        db.Timestamptz(params.ExpiresAt),
	})
	if err != nil {
		return Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	return fromRow(row), nil
}

func (s *PGStore) GetTransfer(ctx context.Context, token string) (Transfer, error) {
	row, err := s.queries.GetPendingTransfer(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, ErrTransferNotFound
		}
		return Transfer{}, err
	}
	return fromRow(row), nil
}

func (s *PGStore) MarkTransferComplete(ctx context.Context, token, localPath string) (Transfer, error) {
	row, err := s.queries.MarkTransferComplete(ctx, sqlc.MarkTransferCompleteParams{
		Token:     token,
		LocalPath: db.Text(localPath),
	})
	if err == nil {
		return fromRow(row), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Transfer{}, err
	}
	existing, getErr := s.GetTransfer(ctx, token)
	if getErr != nil {
		return Transfer{}, getErr
	}
	if existing.Finalized {
		return existing, ErrAlreadyFinalized
	}
	return Transfer{}, ErrTransferNotFound
}

func (s *PGStore) FinalizeTransfer(ctx context.Context, token string, build BuildEntryFunc) (Transfer, entries.Entry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, entries.Entry{}, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	qtx := s.queries.WithTx(tx)

	locked, err := qtx.GetPendingTransferForUpdate(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, entries.Entry{}, ErrTransferNotFound
		}
		return Transfer{}, entries.Entry{}, fmt.Errorf("lock transfer: %w", err)
	}
	params, err := build(fromRow(locked))
	if err != nil {
		return Transfer{}, entries.Entry{}, err
	}

	entryRow, err := qtx.CreateEntry(ctx, entries.ToCreateRow(params))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Transfer{}, entries.Entry{}, entries.ErrPermlinkTaken
		}
		return Transfer{}, entries.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	finalized, err := qtx.FinalizePendingTransfer(ctx, sqlc.FinalizePendingTransferParams{
		Token:   token,
		EntryID: entryRow.ID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, entries.Entry{}, ErrAlreadyFinalized
		}
		return Transfer{}, entries.Entry{}, fmt.Errorf("finalize transfer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, entries.Entry{}, fmt.Errorf("commit finalize tx: %w", err)
	}
	entry, err := entries.FromRow(entryRow)
	if err != nil {
		return Transfer{}, entries.Entry{}, err
	}
	return fromRow(finalized), entry, nil
}

func (s *PGStore) ListExpiredTransfers(ctx context.Context, now time.Time, limit int) ([]Transfer, error) {
	rows, err := s.queries.ListExpiredPendingTransfers(ctx, sqlc.ListExpiredPendingTransfersParams{
		ExpiresAt: db.Timestamptz(now),
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, err
	}
	items := make([]Transfer, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRow(row))
	}
	return items, nil
}

func (s *PGStore) DeleteTransfer(ctx context.Context, token string) (bool, error) {
	n, err := s.queries.DeletePendingTransfer(ctx, token)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func fromRow(row sqlc.PendingTransfer) Transfer {
	return Transfer{
		Token:            row.Token,
		Owner:            row.Owner,
		SizeBytes:        row.SizeBytes,
		DurationSeconds:  row.DurationSeconds,
		OriginalFilename: row.OriginalFilename,
		TransferComplete: row.TransferComplete,
		Finalized:        row.Finalized,
		LocalPath:        db.TextToString(row.LocalPath),
		EntryID:          db.UUIDToString(row.EntryID),
		ExpiresAt:        db.TimeFromPg(row.ExpiresAt),
		CreatedAt:        db.TimeFromPg(row.CreatedAt),
	}
}
