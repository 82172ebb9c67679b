package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hivecast/ingestd/internal/db"
	"github.com/hivecast/ingestd/internal/db/sqlc"
)

const activeKeyIndex = "processing_jobs_active_key"

// Store persists processing jobs.
type Store interface {
	// InsertJob fails with ErrJobExists when a live job already holds the key.
	InsertJob(ctx context.Context, owner, permlink string, input Input) (Job, error)
	GetJob(ctx context.Context, id string) (Job, error)
	// LatestJobForKey prefers a live job, then the most recent terminal one.
	LatestJobForKey(ctx context.Context, owner, permlink string) (Job, error)
	RequeueJob(ctx context.Context, id string) (Job, error)
	CancelJob(ctx context.Context, id string) (Job, error)
}

// PGStore implements Store on the generated queries.
type PGStore struct {
	queries *sqlc.Queries
}

// NewStore creates a Postgres-backed job store.
func NewStore(queries *sqlc.Queries) *PGStore {
	return &PGStore{queries: queries}
}

func (s *PGStore) InsertJob(ctx context.Context, owner, permlink string, input Input) (Job, error) {
	row, err := s.queries.CreateProcessingJob(ctx, sqlc.CreateProcessingJobParams{
		Owner:     owner,
		Permlink:  permlink,
		InputUrl:  input.URL,
		InputSize: input.SizeBytes,
	})
	if err != nil {
		if db.IsUniqueViolationOn(err, activeKeyIndex) {
			return Job{}, ErrJobExists
		}
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return fromRow(row), nil
}

func (s *PGStore) GetJob(ctx context.Context, id string) (Job, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Job{}, ErrJobNotFound
	}
	row, err := s.queries.GetProcessingJob(ctx, pgID)
	return rowResult(row, err, ErrJobNotFound)
}

func (s *PGStore) LatestJobForKey(ctx context.Context, owner, permlink string) (Job, error) {
	row, err := s.queries.GetLatestJobByKey(ctx, sqlc.GetLatestJobByKeyParams{
		Owner:    owner,
		Permlink: permlink,
	})
	return rowResult(row, err, ErrJobNotFound)
}

func (s *PGStore) RequeueJob(ctx context.Context, id string) (Job, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Job{}, ErrJobNotFound
	}
	row, err := s.queries.RetryProcessingJob(ctx, pgID)
	if err != nil && db.IsUniqueViolationOn(err, activeKeyIndex) {
		return Job{}, ErrJobExists
	}
	return rowResult(row, err, ErrJobNotRetryable)
}

func (s *PGStore) CancelJob(ctx context.Context, id string) (Job, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Job{}, ErrJobNotFound
	}
	row, err := s.queries.CancelProcessingJob(ctx, pgID)
	return rowResult(row, err, ErrJobNotCancellable)
}

func rowResult(row sqlc.ProcessingJob, err error, noRows error) (Job, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, noRows
		}
		return Job{}, err
	}
	return fromRow(row), nil
}

func fromRow(row sqlc.ProcessingJob) Job {
	return Job{
		ID:       db.UUIDToString(row.ID),
		Owner:    row.Owner,
		Permlink: row.Permlink,
		Status:   Status(row.Status),
		Input: Input{
			URL:       row.InputUrl,
			SizeBytes: row.InputSize,
		},
		Progress: Progress{
			Percent: row.ProgressPercent,
			Stage:   row.ProgressStage,
		},
		Attempts:  int(row.Attempts),
		LastError: db.TextToString(row.LastError),
		CreatedAt: db.TimeFromPg(row.CreatedAt),
		UpdatedAt: db.TimeFromPg(row.UpdatedAt),
	}
}
