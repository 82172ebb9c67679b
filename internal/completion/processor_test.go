package completion_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/completion"
	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/logger"
	"github.com/hivecast/ingestd/internal/metrics"
	"github.com/hivecast/ingestd/internal/storage"
	"github.com/hivecast/ingestd/internal/testsupport"
)

type fakeUploader struct {
	mu     sync.Mutex
	calls  int
	result storage.Result
	err    error
}

func (u *fakeUploader) Upload(_ context.Context, _ string) (storage.Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return storage.Result{}, u.err
	}
	return u.result, nil
}

func (u *fakeUploader) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

type fixture struct {
	entries   *testsupport.EntryStore
	jobs      *testsupport.JobStore
	uploader  *fakeUploader
	processor *completion.Processor
}

func newFixture() *fixture {
	f := &fixture{
		entries: testsupport.NewEntryStore(),
		jobs:    testsupport.NewJobStore(),
		uploader: &fakeUploader{result: storage.Result{
			ContentID:  "QmStored",
			Origin:     entries.OriginPrimary,
			GatewayURL: "https://gw.example/ipfs/QmStored",
			SizeBytes:  2048,
		}},
	}
	dispatcher := jobs.NewDispatcher(logger.Discard(), f.jobs)
	f.processor = completion.NewProcessor(logger.Discard(), f.entries, f.uploader, dispatcher, metrics.New())
	return f
}

func (f *fixture) newEntry(t *testing.T, localFile string) entries.Entry {
	t.Helper()
	e, err := f.entries.CreateEntry(context.Background(), entries.CreateParams{
		Owner:     "alice",
		Permlink:  "abcd1234",
		Metadata:  entries.Metadata{Title: "T", SizeBytes: 2048, DurationSeconds: 12},
		LocalFile: localFile,
	})
	require.NoError(t, err)
	return e
}

func TestProcessFullPipeline(t *testing.T) {
	f := newFixture()
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 2048)
	entry := f.newEntry(t, path)

	out, err := f.processor.Process(context.Background(), entry.ID, path)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.False(t, out.Attached)
	assert.Equal(t, entries.StatusDispatched, out.Status)
	assert.Equal(t, "QmStored", out.ContentID)
	assert.Equal(t, entries.OriginPrimary, out.Origin)
	assert.NotEmpty(t, out.JobID)

	stored, err := f.entries.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusDispatched, stored.State.Status())
	assert.Empty(t, stored.LocalFile())
	assert.Equal(t, out.JobID, stored.JobID())

	created := f.jobs.ForKey("alice", "abcd1234")
	require.Len(t, created, 1)
	assert.Equal(t, "https://gw.example/ipfs/QmStored", created[0].Input.URL)
	assert.Equal(t, int64(2048), created[0].Input.SizeBytes)
	assert.False(t, testsupport.Exists(t, path))
}

func TestProcessUsesRecordedLocalFile(t *testing.T) {
	f := newFixture()
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)

	_, err := f.processor.Process(context.Background(), entry.ID, "")
	require.NoError(t, err)
	assert.False(t, testsupport.Exists(t, path))
}

func TestProcessDuplicateNotification(t *testing.T) {
	f := newFixture()
	dir := t.TempDir()
	first := testsupport.WriteFile(t, filepath.Join(dir, "first"), 10)
	second := testsupport.WriteFile(t, filepath.Join(dir, "second"), 10)
	entry := f.newEntry(t, first)

	out1, err := f.processor.Process(context.Background(), entry.ID, first)
	require.NoError(t, err)
	out2, err := f.processor.Process(context.Background(), entry.ID, second)
	require.NoError(t, err)

	assert.True(t, out2.Duplicate)
	assert.Equal(t, out1.JobID, out2.JobID)
	assert.Equal(t, 1, f.uploader.Calls())
	assert.Len(t, f.jobs.ForKey("alice", "abcd1234"), 1)
	assert.False(t, testsupport.Exists(t, second))
}

func TestProcessRecordsNotifiedFileForManualRetry(t *testing.T) {
	f := newFixture()
	f.uploader.err = &storage.UploadFailedError{Primary: errors.New("timeout"), Fallback: errors.New("refused")}
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, "")

	_, err := f.processor.Process(context.Background(), entry.ID, path)
	var failed *storage.UploadFailedError
	require.ErrorAs(t, err, &failed)

	pending, err := f.entries.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusCreated, pending.State.Status())
	assert.Equal(t, path, pending.LocalFile())
	assert.True(t, testsupport.Exists(t, path))

	f.uploader.mu.Lock()
	f.uploader.err = nil
	f.uploader.mu.Unlock()

	out, err := f.processor.Process(context.Background(), entry.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entries.StatusDispatched, out.Status)
	assert.False(t, testsupport.Exists(t, path))
}

func TestProcessStorageFailureLeavesEntryAndFile(t *testing.T) {
	f := newFixture()
	f.uploader.err = &storage.UploadFailedError{Primary: errors.New("timeout"), Fallback: errors.New("refused")}
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)

	_, err := f.processor.Process(context.Background(), entry.ID, path)
	var failed *storage.UploadFailedError
	require.ErrorAs(t, err, &failed)

	stored, err := f.entries.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusCreated, stored.State.Status())
	_, hasStorage := stored.Storage()
	assert.False(t, hasStorage)
	assert.Equal(t, path, stored.LocalFile())
	assert.True(t, testsupport.Exists(t, path))
	assert.Empty(t, f.jobs.ForKey("alice", "abcd1234"))

	// A retried notification completes once storage recovers.
	f.uploader.err = nil
	out, err := f.processor.Process(context.Background(), entry.ID, path)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusDispatched, out.Status)
}

func TestProcessTooLargeFailsEntry(t *testing.T) {
	f := newFixture()
	f.uploader.err = fmt.Errorf("%w: 9 GiB", storage.ErrTooLarge)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)

	_, err := f.processor.Process(context.Background(), entry.ID, path)
	assert.ErrorIs(t, err, storage.ErrTooLarge)

	stored, err := f.entries.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusFailed, stored.State.Status())
	assert.False(t, testsupport.Exists(t, path))

	_, err = f.processor.Process(context.Background(), entry.ID, path)
	assert.ErrorIs(t, err, completion.ErrEntryFailed)
}

func TestProcessAttachesExistingJob(t *testing.T) {
	f := newFixture()
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)
	existing, err := f.jobs.InsertJob(context.Background(), "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
	require.NoError(t, err)

	out, err := f.processor.Process(context.Background(), entry.ID, path)
	require.NoError(t, err)
	assert.True(t, out.Attached)
	assert.Equal(t, existing.ID, out.JobID)
	assert.Len(t, f.jobs.ForKey("alice", "abcd1234"), 1)
}

func TestProcessResolvesCreateRace(t *testing.T) {
	f := newFixture()
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)

	var (
		raced  bool
		winner jobs.Job
	)
	// Another completion path inserts its job between our existence check and our insert.
	f.jobs.BeforeInsert = func() {
		if raced {
			return
		}
		raced = true
		var err error
		winner, err = f.jobs.InsertJob(context.Background(), "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
		require.NoError(t, err)
	}

	out, err := f.processor.Process(context.Background(), entry.ID, path)
	require.NoError(t, err)
	assert.True(t, out.Attached)
	assert.Equal(t, winner.ID, out.JobID)
	assert.Len(t, f.jobs.ForKey("alice", "abcd1234"), 1)
}

func TestProcessConcurrentInvocationsCreateOneJob(t *testing.T) {
	f := newFixture()
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "upload"), 10)
	entry := f.newEntry(t, path)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.processor.Process(context.Background(), entry.ID, path)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	created := f.jobs.ForKey("alice", "abcd1234")
	require.Len(t, created, 1)
	stored, err := f.entries.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entries.StatusDispatched, stored.State.Status())
	assert.Equal(t, created[0].ID, stored.JobID())
	assert.Equal(t, 1, f.entries.Stored)
}

func TestProcessResumesStoragePending(t *testing.T) {
	f := newFixture()
	entry := f.entries.Put(entries.Entry{
		Owner:    "alice",
		Permlink: "abcd1234",
		Metadata: entries.Metadata{SizeBytes: 4096},
		State: entries.StoragePending{Storage: entries.StorageRef{
			ContentID:  "QmEarlier",
			Origin:     entries.OriginFallback,
			GatewayURL: "https://fallback.example/ipfs/QmEarlier",
		}},
	})

	out, err := f.processor.Process(context.Background(), entry.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, f.uploader.Calls())
	assert.Equal(t, "QmEarlier", out.ContentID)
	assert.Equal(t, entries.OriginFallback, out.Origin)

	created := f.jobs.ForKey("alice", "abcd1234")
	require.Len(t, created, 1)
	assert.Equal(t, int64(4096), created[0].Input.SizeBytes)
}

func TestProcessUnknownEntry(t *testing.T) {
	f := newFixture()
	_, err := f.processor.Process(context.Background(), "missing", "/tmp/none")
	assert.ErrorIs(t, err, entries.ErrEntryNotFound)
}
