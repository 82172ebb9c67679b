package jobs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/jobs"
	"github.com/hivecast/ingestd/internal/logger"
	"github.com/hivecast/ingestd/internal/testsupport"
)

func newDispatcher() (*jobs.Dispatcher, *testsupport.JobStore) {
	store := testsupport.NewJobStore()
	return jobs.NewDispatcher(logger.Discard(), store), store
}

func TestDispatcherCreateAndFind(t *testing.T) {
	ctx := context.Background()
	d, _ := newDispatcher()

	_, found, err := d.FindExisting(ctx, "alice", "abcd1234")
	require.NoError(t, err)
	assert.False(t, found)

	job, err := d.Create(ctx, "alice", "abcd1234", jobs.Input{URL: "https://gw/ipfs/Qm", SizeBytes: 42})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, job.Status)

	existing, found, err := d.FindExisting(ctx, "alice", "abcd1234")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, job.ID, existing.ID)
	assert.Equal(t, int64(42), existing.Input.SizeBytes)
}

func TestDispatcherCreateRejectsSecondLiveJob(t *testing.T) {
	ctx := context.Background()
	d, store := newDispatcher()
	in := jobs.Input{URL: "https://gw/ipfs/Qm", SizeBytes: 1}

	_, err := d.Create(ctx, "alice", "abcd1234", in)
	require.NoError(t, err)
	_, err = d.Create(ctx, "alice", "abcd1234", in)
	assert.ErrorIs(t, err, jobs.ErrJobExists)
	assert.Len(t, store.ForKey("alice", "abcd1234"), 1)

	// A different key is independent.
	_, err = d.Create(ctx, "alice", "zzzz9999", in)
	assert.NoError(t, err)
}

func TestDispatcherCreateValidatesInput(t *testing.T) {
	d, _ := newDispatcher()
	_, err := d.Create(context.Background(), "", "abcd1234", jobs.Input{URL: "u"})
	assert.Error(t, err)
	_, err = d.Create(context.Background(), "alice", "abcd1234", jobs.Input{})
	assert.Error(t, err)
}

func TestDispatcherRetryAndCancel(t *testing.T) {
	ctx := context.Background()
	d, store := newDispatcher()
	job, err := d.Create(ctx, "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
	require.NoError(t, err)

	_, err = d.Retry(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotRetryable)

	cancelled, err := d.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, cancelled.Status)

	_, err = d.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotCancellable)

	requeued, err := d.Retry(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, requeued.Status)
	assert.Equal(t, 1, requeued.Attempts)

	store.SetStatus(job.ID, jobs.StatusFailed)
	_, err = d.Create(ctx, "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
	require.NoError(t, err)
	_, err = d.Retry(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobExists)
}

func TestDispatcherFindExistingPrefersLiveJob(t *testing.T) {
	ctx := context.Background()
	d, store := newDispatcher()
	first, err := d.Create(ctx, "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
	require.NoError(t, err)
	store.SetStatus(first.ID, jobs.StatusCompleted)

	found, ok, err := d.FindExisting(ctx, "alice", "abcd1234")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, found.ID)

	second, err := d.Create(ctx, "alice", "abcd1234", jobs.Input{URL: "u", SizeBytes: 1})
	require.NoError(t, err)
	found, _, err = d.FindExisting(ctx, "alice", "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestDispatcherUnknownJob(t *testing.T) {
	d, _ := newDispatcher()
	_, err := d.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	_, err = d.Retry(context.Background(), "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}
