package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/ingestd/internal/entries"
	"github.com/hivecast/ingestd/internal/logger"
	"github.com/hivecast/ingestd/internal/metrics"
)

type fakeNode struct {
	mu       sync.Mutex
	cid      string
	err      error
	block    bool
	adds     []string
	unpinned []string
}

func (n *fakeNode) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	n.mu.Lock()
	n.adds = append(n.adds, string(data))
	n.mu.Unlock()
	if n.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if n.err != nil {
		return "", n.err
	}
	return n.cid, nil
}

func (n *fakeNode) Unpin(_ context.Context, contentID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unpinned = append(n.unpinned, contentID)
	return n.err
}

func writeUpload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.bin")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestEngine(primary, fallback *fakeNode, m *metrics.Metrics) *Engine {
	return NewEngine(logger.Discard(), EngineConfig{
		Primary:       Endpoint{Node: primary, Gateway: "https://primary.example/"},
		Fallback:      Endpoint{Node: fallback, Gateway: "https://fallback.example"},
		UploadTimeout: 50 * time.Millisecond,
		MaxBytes:      1 << 20,
	}, m)
}

func TestEngineUploadPrimary(t *testing.T) {
	primary := &fakeNode{cid: "QmPrimary"}
	fallback := &fakeNode{cid: "QmFallback"}
	m := metrics.New()
	path := writeUpload(t, "hello")

	res, err := newTestEngine(primary, fallback, m).Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "QmPrimary", res.ContentID)
	assert.Equal(t, entries.OriginPrimary, res.Origin)
	assert.Equal(t, "https://primary.example/ipfs/QmPrimary", res.GatewayURL)
	assert.Equal(t, int64(5), res.SizeBytes)
	assert.Empty(t, fallback.adds)
	assert.FileExists(t, path)
	count, err := testutil.GatherAndCount(m.Registry(), "ingestd_storage_uploads_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngineUploadFallsBackAfterTimeout(t *testing.T) {
	primary := &fakeNode{block: true}
	fallback := &fakeNode{cid: "QmFallback"}
	path := writeUpload(t, "hello")

	res, err := newTestEngine(primary, fallback, nil).Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, entries.OriginFallback, res.Origin)
	assert.Equal(t, "https://fallback.example/ipfs/QmFallback", res.GatewayURL)
	// Fallback re-reads the file from the start.
	assert.Equal(t, []string{"hello"}, fallback.adds)
}

func TestEngineUploadBothFail(t *testing.T) {
	primaryErr := errors.New("primary down")
	fallbackErr := errors.New("fallback down")
	primary := &fakeNode{err: primaryErr}
	fallback := &fakeNode{err: fallbackErr}
	path := writeUpload(t, "hello")

	_, err := newTestEngine(primary, fallback, nil).Upload(context.Background(), path)
	var failed *UploadFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, primaryErr)
	assert.ErrorIs(t, err, fallbackErr)
	assert.Len(t, primary.adds, 1)
	assert.Len(t, fallback.adds, 1)
	assert.FileExists(t, path)
}

func TestEngineUploadTooLarge(t *testing.T) {
	primary := &fakeNode{cid: "QmPrimary"}
	eng := newTestEngine(primary, &fakeNode{}, nil)
	eng.max = 3

	_, err := eng.Upload(context.Background(), writeUpload(t, "hello"))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, primary.adds)
}

func TestEngineUploadMissingFile(t *testing.T) {
	_, err := newTestEngine(&fakeNode{}, &fakeNode{}, nil).Upload(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEngineUnpinRoutesByOrigin(t *testing.T) {
	primary := &fakeNode{}
	fallback := &fakeNode{}
	eng := newTestEngine(primary, fallback, nil)

	require.NoError(t, eng.Unpin(context.Background(), entries.OriginFallback, "QmA"))
	require.NoError(t, eng.Unpin(context.Background(), entries.OriginPrimary, "QmB"))
	assert.Equal(t, []string{"QmA"}, fallback.unpinned)
	assert.Equal(t, []string{"QmB"}, primary.unpinned)
	assert.Error(t, eng.Unpin(context.Background(), entries.Origin("elsewhere"), "QmC"))
}

func TestNewEngineAcceptsNilLogger(t *testing.T) {
	engine := NewEngine(nil, EngineConfig{
		Primary:  Endpoint{Node: &fakeNode{cid: "QmPrimary"}, Gateway: "https://primary.example"},
		Fallback: Endpoint{Node: &fakeNode{cid: "QmFallback"}, Gateway: "https://fallback.example"},
		MaxBytes: 1 << 20,
	}, nil)

	res, err := engine.Upload(context.Background(), writeUpload(t, "hello"))
	require.NoError(t, err)
	assert.Equal(t, "QmPrimary", res.ContentID)
}
