package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNodeAdd(t *testing.T) {
	var gotBody, gotName, gotPin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/add", r.URL.Path)
		gotPin = r.URL.Query().Get("pin")
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotBody = string(data)
		gotName = hdr.Filename
		_, _ = io.WriteString(w, `{"Name":"clip.mp4","Hash":"QmChunk","Size":"3"}`+"\n")
		_, _ = io.WriteString(w, `{"Name":"clip.mp4","Hash":"QmRoot","Size":"5"}`+"\n")
	}))
	defer srv.Close()

	node := NewHTTPNode(srv.URL+"/", srv.Client())
	cid, err := node.Add(context.Background(), "clip.mp4", strings.NewReader("video"))
	require.NoError(t, err)
	assert.Equal(t, "QmRoot", cid)
	assert.Equal(t, "video", gotBody)
	assert.Equal(t, "clip.mp4", gotName)
	assert.Equal(t, "true", gotPin)
}

func TestHTTPNodeAddErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "node is sad", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPNode(srv.URL, srv.Client()).Add(context.Background(), "a", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "node is sad")
}

func TestHTTPNodeAddEmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, `{"Name":"a"}`)
	}))
	defer srv.Close()

	_, err := NewHTTPNode(srv.URL, srv.Client()).Add(context.Background(), "a", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrEmptyContentID)
}

func TestHTTPNodeUnpin(t *testing.T) {
	var gotArg string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v0/pin/rm", r.URL.Path)
		gotArg = r.URL.Query().Get("arg")
		_, _ = io.WriteString(w, `{"Pins":["QmRoot"]}`)
	}))
	defer srv.Close()

	node := NewHTTPNode(srv.URL, srv.Client())
	require.NoError(t, node.Unpin(context.Background(), "QmRoot"))
	assert.Equal(t, "QmRoot", gotArg)

	assert.ErrorIs(t, node.Unpin(context.Background(), " "), ErrEmptyContentID)
}
