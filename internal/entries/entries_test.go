package entries

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/db"
	"github.com/hivecast/ingestd/internal/db/sqlc"
	"github.com/hivecast/ingestd/internal/logger"
)

const (
	testEntryID = "550e8400-e29b-41d4-a716-446655440000"
	testJobID   = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

func baseRow(t *testing.T, status string) sqlc.Entry {
	t.Helper()
	id, err := db.ParseUUID(testEntryID)
	require.NoError(t, err)
	return sqlc.Entry{
		ID:              id,
		Owner:           "alice",
		Permlink:        "abcd1234",
		Title:           "T",
		SizeBytes:       5_000_000,
		DurationSeconds: 12,
		Status:          status,
	}
}

func storedRow(t *testing.T, status string) sqlc.Entry {
	row := baseRow(t, status)
	row.ContentID = db.Text("bafyfallback")
	row.Origin = db.Text(string(OriginFallback))
	row.GatewayUrl = db.Text("http://gw/ipfs/bafyfallback")
	jobID, err := db.ParseUUID(testJobID)
	require.NoError(t, err)
	row.JobID = jobID
	return row
}

func TestFromRowCreated(t *testing.T) {
	row := baseRow(t, "created")
	row.LocalFile = db.Text("/tmp/x")

	e, err := FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, e.State.Status())
	assert.Equal(t, "/tmp/x", e.LocalFile())
	assert.False(t, e.Processed())
	_, stored := e.Storage()
	assert.False(t, stored)
}

func TestFromRowStoragePending(t *testing.T) {
	row := storedRow(t, "storage_pending")
	row.JobID = pgtype.UUID{}

	e, err := FromRow(row)
	require.NoError(t, err)
	ref, ok := e.Storage()
	require.True(t, ok)
	assert.Equal(t, "bafyfallback", ref.ContentID)
	assert.Equal(t, OriginFallback, ref.Origin)
	assert.Empty(t, e.JobID())
	assert.False(t, e.Processed())
}

func TestFromRowPublishedCarriesEvictionFlag(t *testing.T) {
	row := storedRow(t, "published")
	row.EvictionEligible = true

	e, err := FromRow(row)
	require.NoError(t, err)
	assert.True(t, e.Processed())
	assert.True(t, e.EvictionEligible())
	assert.Equal(t, testJobID, e.JobID())
}

func TestFromRowFailedWithoutStorage(t *testing.T) {
	row := baseRow(t, "failed")
	row.FailureReason = db.Text("file too large")

	e, err := FromRow(row)
	require.NoError(t, err)
	v := e.ToView()
	assert.Equal(t, StatusFailed, v.Status)
	assert.Equal(t, "file too large", v.FailureReason)
	assert.Empty(t, v.ContentID)
}

func TestFromRowRejectsBrokenInvariants(t *testing.T) {
	noStorage := baseRow(t, "dispatched")
	_, err := FromRow(noStorage)
	assert.Error(t, err)

	jobWithoutStorage := baseRow(t, "created")
	jobWithoutStorage.JobID, _ = db.ParseUUID(testJobID)
	_, err = FromRow(jobWithoutStorage)
	assert.Error(t, err)

	unknown := baseRow(t, "archived")
	_, err = FromRow(unknown)
	assert.Error(t, err)
}

func TestToCreateRowDefaultsTags(t *testing.T) {
	row := ToCreateRow(CreateParams{Owner: "alice", Permlink: "abcd1234"})
	assert.NotNil(t, row.Tags)
	assert.False(t, row.LocalFile.Valid)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusCreated.Terminal())
	assert.False(t, StatusStoragePending.Terminal())
	assert.False(t, StatusDispatched.Terminal())
	assert.True(t, StatusPublished.Terminal())
	assert.True(t, StatusPublishManual.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewPermlink(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		p := NewPermlink()
		assert.Len(t, p, PermlinkLength)
		assert.Equal(t, strings.ToLower(p), p)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestValidateHandle(t *testing.T) {
	valid := []string{"alice", "bob-99", "news.daily", "a1b"}
	invalid := []string{"", "al", "Alice", "1alice", "alice-", "al.bob", "alice..bob", "averyveryverylongname", "al ice", "a--b"}
	for _, h := range valid {
		assert.NoError(t, ValidateHandle(h), h)
	}
	for _, h := range invalid {
		assert.Error(t, ValidateHandle(h), h)
	}
}

type collidingStore struct {
	Store
	collisions int
	calls      int
}

func (s *collidingStore) CreateEntry(_ context.Context, params CreateParams) (Entry, error) {
	s.calls++
	if s.calls <= s.collisions {
		return Entry{}, ErrPermlinkTaken
	}
	return Entry{ID: testEntryID, Owner: params.Owner, Permlink: params.Permlink, State: Created{LocalFile: params.LocalFile}}, nil
}

func TestServiceCreateRetriesPermlinkCollision(t *testing.T) {
	store := &collidingStore{collisions: 2}
	svc := NewService(logger.Discard(), store)

	e, err := svc.Create(context.Background(), "alice", Metadata{Title: "T"}, "/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, "/tmp/x", e.LocalFile())
}

func TestServiceCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	store := &collidingStore{collisions: 10}
	svc := NewService(logger.Discard(), store)

	_, err := svc.Create(context.Background(), "alice", Metadata{}, "")
	assert.ErrorIs(t, err, ErrPermlinkTaken)
	assert.Equal(t, permlinkAttempts, store.calls)
}

func TestServiceGetRejectsBlankID(t *testing.T) {
	svc := NewService(logger.Discard(), &collidingStore{})
	_, err := svc.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
