package intake_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/intake"
	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/logger"
	"github.com/hivecast/ingestd/internal/storage"
	"github.com/hivecast/ingestd/internal/testsupport"
	"github.com/hivecast/ingestd/internal/transfers"
)

type stubUploader struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (u *stubUploader) Upload(_ context.Context, _ string) (storage.Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return storage.Result{}, u.err
	}
	return storage.Result{
		ContentID:  "QmClip",
		Origin:     entries.OriginPrimary,
		GatewayURL: "https://gw.example/ipfs/QmClip",
		SizeBytes:  5_000_000,
	}, nil
}

type harness struct {
	entries     *testsupport.EntryStore
	transfers   *testsupport.TransferStore
	jobs        *testsupport.JobStore
	uploader    *stubUploader
	coordinator *intake.Coordinator
	finalizer   *intake.Finalizer
	transferSvc *transfers.Service
}

func newHarness() *harness {
	log := logger.Discard()
	h := &harness{
		entries:  testsupport.NewEntryStore(),
		jobs:     testsupport.NewJobStore(),
		uploader: &stubUploader{},
	}
	h.transfers = testsupport.NewTransferStore(h.entries)
	h.transferSvc = transfers.NewService(log, h.transfers)
	processor := completion.NewProcessor(log, h.entries, h.uploader, jobs.NewDispatcher(log, h.jobs), nil)
	h.coordinator = intake.NewCoordinator(log, intake.CoordinatorConfig{
		Endpoint:    "https://upload.example/files/",
		TransferTTL: time.Hour,
	}, entries.NewService(log, h.entries), h.transfers)
	h.finalizer = intake.NewFinalizer(log, h.transfers, processor)
	return h
}

func TestBeginMetadataFirstValidation(t *testing.T) {
	valid := intake.DeclaredMetadata{Title: "T", SizeBytes: 5_000_000, DurationSeconds: 12}
	cases := []struct {
		name  string
		owner string
		edit  func(*intake.DeclaredMetadata)
		field string
	}{
		{"too small", "alice", func(m *intake.DeclaredMetadata) { m.SizeBytes = 1023 }, "size_bytes"},
		{"too large", "alice", func(m *intake.DeclaredMetadata) { m.SizeBytes = 8<<30 + 1 }, "size_bytes"},
		{"too short", "alice", func(m *intake.DeclaredMetadata) { m.DurationSeconds = 0.05 }, "duration_seconds"},
		{"too long", "alice", func(m *intake.DeclaredMetadata) { m.DurationSeconds = 21600.5 }, "duration_seconds"},
		{"bad handle", "Al", func(*intake.DeclaredMetadata) {}, "owner"},
		{"no title", "alice", func(m *intake.DeclaredMetadata) { m.Title = " " }, "title"},
		{"bad filename", "alice", func(m *intake.DeclaredMetadata) { m.OriginalFilename = "../etc/passwd" }, "original_filename"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			meta := valid
			tc.edit(&meta)
			_, err := h.coordinator.BeginMetadataFirst(context.Background(), tc.owner, meta)
			var verr *intake.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, h.entries.All())
		})
	}
}

func TestBeginMetadataFirstBounds(t *testing.T) {
	h := newHarness()
	_, err := h.coordinator.BeginMetadataFirst(context.Background(), "alice", intake.DeclaredMetadata{
		Title: "edge", SizeBytes: 1 << 10, DurationSeconds: 0.1,
	})
	require.NoError(t, err)
	_, err = h.coordinator.BeginMetadataFirst(context.Background(), "alice", intake.DeclaredMetadata{
		Title: "edge", SizeBytes: 8 << 30, DurationSeconds: 21600,
	})
	require.NoError(t, err)
}

func TestBeginMetadataFirstCreatesEntry(t *testing.T) {
	h := newHarness()
	ticket, err := h.coordinator.BeginMetadataFirst(context.Background(), "alice", intake.DeclaredMetadata{
		Title:           " Holiday ",
		Tags:            []string{"Travel", "travel", " "},
		SizeBytes:       5_000_000,
		DurationSeconds: 12,
	})
	require.NoError(t, err)
	assert.Len(t, ticket.Permlink, entries.PermlinkLength)
	assert.Equal(t, "https://upload.example/files/", ticket.Target.Endpoint)
	assert.Equal(t, map[string]string{
		completion.MetaVideoID:  ticket.EntryID,
		completion.MetaOwner:    "alice",
		completion.MetaPermlink: ticket.Permlink,
	}, ticket.Target.Metadata)

	entry, err := h.entries.GetEntry(context.Background(), ticket.EntryID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusCreated, entry.State.Status())
	assert.Equal(t, "Holiday", entry.Metadata.Title)
	assert.Equal(t, []string{"travel"}, entry.Metadata.Tags)
	assert.Empty(t, h.jobs.ForKey("alice", ticket.Permlink))
}

func TestBeginUploadFirstCreatesTransfer(t *testing.T) {
	h := newHarness()
	before := time.Now()
	ticket, err := h.coordinator.BeginUploadFirst(context.Background(), "alice", 5_000_000, 12.0, "clip.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.Token)
	assert.Equal(t, map[string]string{completion.MetaUploadID: ticket.Token}, ticket.Target.Metadata)
	assert.WithinDuration(t, before.Add(time.Hour), ticket.ExpiresAt, time.Minute)

	tr, err := h.transfers.GetTransfer(context.Background(), ticket.Token)
	require.NoError(t, err)
	assert.False(t, tr.TransferComplete)
	assert.False(t, tr.Finalized)
	assert.Equal(t, "clip.mp4", tr.OriginalFilename)
	assert.Empty(t, h.entries.All())

	_, err = h.coordinator.BeginUploadFirst(context.Background(), "alice", 5_000_000, 12.0, "")
	var verr *intake.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestFinalizeNotReadyLeavesStateUntouched(t *testing.T) {
	h := newHarness()
	ticket, err := h.coordinator.BeginUploadFirst(context.Background(), "alice", 5_000_000, 12.0, "clip.mp4")
	require.NoError(t, err)
	before, err := h.transfers.GetTransfer(context.Background(), ticket.Token)
	require.NoError(t, err)

	_, err = h.finalizer.Finalize(context.Background(), ticket.Token, intake.UserMetadata{Title: "T"})
	assert.ErrorIs(t, err, transfers.ErrUploadNotReady)

	after, err := h.transfers.GetTransfer(context.Background(), ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, h.entries.All())
}

func TestFinalizeExpiredTransfer(t *testing.T) {
	h := newHarness()
	h.transfers.Put(transfers.Transfer{
		Token:            "old",
		Owner:            "alice",
		TransferComplete: true,
		LocalPath:        "/tmp/x",
		ExpiresAt:        time.Now().Add(-time.Minute),
	})

	_, err := h.finalizer.Finalize(context.Background(), "old", intake.UserMetadata{Title: "T"})
	assert.ErrorIs(t, err, transfers.ErrTransferNotFound)
	_, err = h.finalizer.Finalize(context.Background(), "unknown", intake.UserMetadata{Title: "T"})
	assert.ErrorIs(t, err, transfers.ErrTransferNotFound)
	assert.Empty(t, h.entries.All())
}

func TestUploadFirstScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	ticket, err := h.coordinator.BeginUploadFirst(ctx, "alice", 5_000_000, 12.0, "clip.mp4")
	require.NoError(t, err)
	tr, err := h.transfers.GetTransfer(ctx, ticket.Token)
	require.NoError(t, err)
	assert.False(t, tr.TransferComplete)

	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "x"), 5_000_000)
	tr, err = h.transferSvc.MarkComplete(ctx, ticket.Token, path)
	require.NoError(t, err)
	assert.True(t, tr.TransferComplete)
	assert.Equal(t, path, tr.LocalPath)

	res, err := h.finalizer.Finalize(ctx, ticket.Token, intake.UserMetadata{Title: "T", Description: "D"})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, entries.StatusDispatched, res.Outcome.Status)

	entry, err := h.entries.GetEntry(ctx, res.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "T", entry.Metadata.Title)
	assert.Equal(t, "D", entry.Metadata.Description)
	assert.Equal(t, "clip.mp4", entry.Metadata.OriginalFilename)
	assert.Equal(t, int64(5_000_000), entry.Metadata.SizeBytes)
	assert.Len(t, h.jobs.ForKey("alice", entry.Permlink), 1)
	assert.False(t, testsupport.Exists(t, path))

	again, err := h.finalizer.Finalize(ctx, ticket.Token, intake.UserMetadata{Title: "T", Description: "D"})
	assert.ErrorIs(t, err, transfers.ErrAlreadyFinalized)
	assert.Equal(t, res.EntryID, again.EntryID)
	assert.Len(t, h.entries.All(), 1)
}

func TestFinalizeStorageFailureKeepsEntry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.uploader.err = &storage.UploadFailedError{Primary: errors.New("down"), Fallback: errors.New("down")}

	ticket, err := h.coordinator.BeginUploadFirst(ctx, "alice", 5_000_000, 12.0, "clip.mp4")
	require.NoError(t, err)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "x"), 16)
	_, err = h.transferSvc.MarkComplete(ctx, ticket.Token, path)
	require.NoError(t, err)

	res, err := h.finalizer.Finalize(ctx, ticket.Token, intake.UserMetadata{Title: "T"})
	var failed *storage.UploadFailedError
	require.ErrorAs(t, err, &failed)
	require.NotEmpty(t, res.EntryID)

	entry, err := h.entries.GetEntry(ctx, res.EntryID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusCreated, entry.State.Status())
	assert.Equal(t, path, entry.LocalFile())
	assert.True(t, testsupport.Exists(t, path))

	// A repeated finalize still points at the pending entry.
	again, err := h.finalizer.Finalize(ctx, ticket.Token, intake.UserMetadata{Title: "T"})
	assert.ErrorIs(t, err, transfers.ErrAlreadyFinalized)
	assert.Equal(t, res.EntryID, again.EntryID)
}

func TestFinalizeRequiresTitle(t *testing.T) {
	h := newHarness()
	_, err := h.finalizer.Finalize(context.Background(), "tok", intake.UserMetadata{})
	var verr *intake.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}
