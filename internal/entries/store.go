package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hivecast/ingestd/internal/db"
	"github.com/hivecast/ingestd/internal/db/sqlc"
)

// ErrPermlinkTaken is returned when a generated permlink collides with an existing entry.
var ErrPermlinkTaken = errors.New("permlink already taken")

const permlinkConstraint = "entries_permlink_unique"

// Store persists entries. Every state-changing method is a guarded update that
// only applies from the expected source state.
type Store interface {
	CreateEntry(ctx context.Context, params CreateParams) (Entry, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntriesByOwner(ctx context.Context, owner string, limit int) ([]Entry, error)
	// SetEntryLocalFile records where the uploaded file sits; created entries only.
	SetEntryLocalFile(ctx context.Context, id, localFile string) (Entry, error)
	MarkEntryStored(ctx context.Context, id string, ref StorageRef) (Entry, error)
	MarkEntryDispatched(ctx context.Context, id, jobID string) (Entry, error)
	MarkEntryFailed(ctx context.Context, id, reason string) (Entry, error)
	// ListEvictionCandidates pages by (created_at, id) strictly after the cursor.
	ListEvictionCandidates(ctx context.Context, olderThan time.Time, after EvictionCursor, limit int) ([]Entry, error)
	MarkEvictionEligible(ctx context.Context, id string) (bool, error)
}

// PGStore implements Store on the generated queries.
type PGStore struct {
	queries *sqlc.Queries
}

// NewStore creates a Postgres-backed entry store.
func NewStore(queries *sqlc.Queries) *PGStore {
	return &PGStore{queries: queries}
}

func (s *PGStore) CreateEntry(ctx context.Context, params CreateParams) (Entry, error) {
	row, err := s.queries.CreateEntry(ctx, ToCreateRow(params))
	if err != nil {
		if db.IsUniqueViolationOn(err, permlinkConstraint) {
			return Entry{}, ErrPermlinkTaken
		}
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return FromRow(row)
}

func (s *PGStore) GetEntry(ctx context.Context, id string) (Entry, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Entry{}, ErrEntryNotFound
	}
	row, err := s.queries.GetEntryByID(ctx, pgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return FromRow(row)
}

func (s *PGStore) ListEntriesByOwner(ctx context.Context, owner string, limit int) ([]Entry, error) {
	rows, err := s.queries.ListEntriesByOwner(ctx, sqlc.ListEntriesByOwnerParams{
		Owner: owner,
		Limit: int32(limit),
	})
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (s *PGStore) SetEntryLocalFile(ctx context.Context, id, localFile string) (Entry, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Entry{}, ErrEntryNotFound
	}
	row, err := s.queries.SetEntryLocalFile(ctx, sqlc.SetEntryLocalFileParams{
		ID:        pgID,
		LocalFile: db.Text(localFile),
	})
	return guardedResult(row, err)
}

func (s *PGStore) MarkEntryStored(ctx context.Context, id string, ref StorageRef) (Entry, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Entry{}, ErrEntryNotFound
	}
	row, err := s.queries.MarkEntryStored(ctx, sqlc.MarkEntryStoredParams{
		ID:         pgID,
		ContentID:  db.Text(ref.ContentID),
		Origin:     db.Text(string(ref.Origin)),
		GatewayUrl: db.Text(ref.GatewayURL),
	})
	return guardedResult(row, err)
}

func (s *PGStore) MarkEntryDispatched(ctx context.Context, id, jobID string) (Entry, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Entry{}, ErrEntryNotFound
	}
	pgJobID, err := db.ParseUUID(jobID)
	if err != nil {
		return Entry{}, fmt.Errorf("job id: %w", err)
	}
	row, err := s.queries.MarkEntryDispatched(ctx, sqlc.MarkEntryDispatchedParams{
		ID:    pgID,
		JobID: pgJobID,
	})
	return guardedResult(row, err)
}

func (s *PGStore) MarkEntryFailed(ctx context.Context, id, reason string) (Entry, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return Entry{}, ErrEntryNotFound
	}
	row, err := s.queries.MarkEntryFailed(ctx, sqlc.MarkEntryFailedParams{
		ID:            pgID,
		FailureReason: db.Text(reason),
	})
	return guardedResult(row, err)
}

func (s *PGStore) ListEvictionCandidates(ctx context.Context, olderThan time.Time, after EvictionCursor, limit int) ([]Entry, error) {
	params := sqlc.ListEvictionCandidatesParams{
		OlderThan:  db.Timestamptz(olderThan),
		BatchLimit: int32(limit),
	}
	if !after.IsZero() {
		afterID, err := db.ParseUUID(after.ID)
		if err != nil {
			return nil, fmt.Errorf("eviction cursor: %w", err)
		}
		params.AfterCreatedAt = db.Timestamptz(after.CreatedAt)
		params.AfterID = afterID
	}
	rows, err := s.queries.ListEvictionCandidates(ctx, params)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func (s *PGStore) MarkEvictionEligible(ctx context.Context, id string) (bool, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return false, ErrEntryNotFound
	}
	n, err := s.queries.MarkEntryEvictionEligible(ctx, pgID)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func guardedResult(row sqlc.Entry, err error) (Entry, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrInvalidTransition
		}
		return Entry{}, err
	}
	return FromRow(row)
}

// ToCreateRow maps create params onto the insert statement.
func ToCreateRow(params CreateParams) sqlc.CreateEntryParams {
	tags := params.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	return sqlc.CreateEntryParams{
		Owner:            params.Owner,
		Permlink:         params.Permlink,
		Title:            params.Metadata.Title,
		Description:      params.Metadata.Description,
		Tags:             tags,
		OriginalFilename: params.Metadata.OriginalFilename,
		SizeBytes:        params.Metadata.SizeBytes,
		DurationSeconds:  params.Metadata.DurationSeconds,
		LocalFile:        db.Text(params.LocalFile),
	}
}

// FromRow converts a persisted row into the tagged lifecycle representation.
// Rows that violate the lifecycle invariants are rejected rather than guessed at.
func FromRow(row sqlc.Entry) (Entry, error) {
	e := Entry{
		ID:       db.UUIDToString(row.ID),
		Owner:    row.Owner,
		Permlink: row.Permlink,
		Metadata: Metadata{
			Title:            row.Title,
			Description:      row.Description,
			Tags:             row.Tags,
			OriginalFilename: row.OriginalFilename,
			SizeBytes:        row.SizeBytes,
			DurationSeconds:  row.DurationSeconds,
		},
		CreatedAt: db.TimeFromPg(row.CreatedAt),
		UpdatedAt: db.TimeFromPg(row.UpdatedAt),
	}

	ref, stored := storageFromRow(row.ContentID, row.Origin, row.GatewayUrl)
	jobID := db.UUIDToString(row.JobID)
	if jobID != "" && !stored {
		return Entry{}, fmt.Errorf("entry %s: job attached without storage", e.ID)
	}
	needsStorage := func() error {
		if !stored {
			return fmt.Errorf("entry %s: status %s without storage", e.ID, row.Status)
		}
		return nil
	}

	switch Status(row.Status) {
	case StatusCreated:
		e.State = Created{LocalFile: db.TextToString(row.LocalFile)}
	case StatusStoragePending:
		if err := needsStorage(); err != nil {
			return Entry{}, err
		}
		e.State = StoragePending{Storage: ref}
	case StatusDispatched:
		if err := needsStorage(); err != nil {
			return Entry{}, err
		}
		e.State = Dispatched{Storage: ref, JobID: jobID}
	case StatusPublished:
		if err := needsStorage(); err != nil {
			return Entry{}, err
		}
		e.State = Published{Storage: ref, JobID: jobID, EvictionEligible: row.EvictionEligible}
	case StatusPublishManual:
		if err := needsStorage(); err != nil {
			return Entry{}, err
		}
		e.State = PublishManual{Storage: ref, JobID: jobID}
	case StatusFailed:
		f := Failed{Reason: db.TextToString(row.FailureReason), JobID: jobID}
		if stored {
			f.Storage = &ref
		}
		e.State = f
	default:
		return Entry{}, fmt.Errorf("entry %s: unknown status %q", e.ID, row.Status)
	}
	return e, nil
}

func storageFromRow(contentID, origin, gateway pgtype.Text) (StorageRef, bool) {
	if !contentID.Valid || contentID.String == "" {
		return StorageRef{}, false
	}
	return StorageRef{
		ContentID:  contentID.String,
		Origin:     Origin(db.TextToString(origin)),
		GatewayURL: db.TextToString(gateway),
	}, true
}

func fromRows(rows []sqlc.Entry) ([]Entry, error) {
	items := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e, err := FromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}
