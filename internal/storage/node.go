package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 512

// HTTPNode talks to a node exposing the IPFS HTTP RPC API (/api/v0/add, /api/v0/pin/rm).
type HTTPNode struct {
	apiURL string
	client *http.Client
}

// NewHTTPNode creates a node client. Timeouts come from the request context, so
// the client itself carries none.
func NewHTTPNode(apiURL string, client *http.Client) *HTTPNode {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPNode{
		apiURL: strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		client: client,
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add streams r as a multipart upload with pin=true.
func (n *HTTPNode) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	endpoint := n.apiURL + "/api/v0/add?" + url.Values{"pin": {"true"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("build add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := n.client.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return "", fmt.Errorf("add request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}

	// The add endpoint may stream several JSON objects; the last one names the root.
	var last addResponse
	dec := json.NewDecoder(resp.Body)
	for {
		var item addResponse
		if err := dec.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("decode add response: %w", err)
		}
		last = item
	}
	if strings.TrimSpace(last.Hash) == "" {
		return "", ErrEmptyContentID
	}
	return last.Hash, nil
}

// Unpin removes the recursive pin of contentID.
func (n *HTTPNode) Unpin(ctx context.Context, contentID string) error {
	if strings.TrimSpace(contentID) == "" {
		return ErrEmptyContentID
	}
	endpoint := n.apiURL + "/api/v0/pin/rm?" + url.Values{"arg": {contentID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build unpin request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("unpin request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("storage node returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
