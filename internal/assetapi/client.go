// Package assetapi is the HTTP client for the upstream asset backend.
// One token-authenticated client per server; submissions never retry
// automatically, so a timeout leaves the outcome unknown and is
// reported as such.
package assetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helloakshay27/hi-society-assets/internal/types"
)

const (
	// jsonSubmitTimeout bounds a plain-JSON update.
	jsonSubmitTimeout = 30 * time.Second
	// multipartSubmitTimeout bounds an update carrying file uploads,
	// matching the upstream's own five-minute ingest window.
	multipartSubmitTimeout = 300 * time.Second

	fetchTimeout = 15 * time.Second
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New builds a client for the backend at baseURL. Per-request deadlines
// are set via context, not the http.Client, because JSON and multipart
// submissions get different budgets.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// GetAsset fetches the full asset record for form initialization.
func (c *Client) GetAsset(ctx context.Context, assetID int) (*types.AssetRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/pms/assets/%d.json", assetID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch asset %d: %w", assetID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}

	var rec types.AssetRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode asset %d: %w", assetID, err)
	}
	return &rec, nil
}

// UpdateAssetJSON submits the assembled payload as application/json.
func (c *Client) UpdateAssetJSON(ctx context.Context, assetID int, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.update(ctx, assetID, bytes.NewReader(body), "application/json", jsonSubmitTimeout)
}

// UpdateAssetMultipart submits a pre-encoded multipart body. The longer
// deadline covers file transfer.
func (c *Client) UpdateAssetMultipart(ctx context.Context, assetID int, body []byte, contentType string) error {
	return c.update(ctx, assetID, bytes.NewReader(body), contentType, multipartSubmitTimeout)
}

func (c *Client) update(ctx context.Context, assetID int, body io.Reader, contentType string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPut, fmt.Sprintf("/pms/assets/%d.json", assetID), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrSubmitTimeout
		}
		return fmt.Errorf("update asset %d: %w", assetID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &UnprocessableError{Message: unprocessableMessage(resp.Body)}
	default:
		return readStatusError(resp)
	}
}

// DownloadAttachment proxies one persisted attachment. Returns the raw
// bytes and the upstream content type.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, multipartSubmitTimeout)
	defer cancel()

	path := fmt.Sprintf("/attachfiles/%d?%s", attachmentID, url.Values{"show_file": {"true"}}.Encode())
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download attachment %d: %w", attachmentID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", readStatusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// unprocessableMessage digs the human-readable reason out of a 422
// body. The backend emits either {"message": "..."} or
// {"errors": ["...", ...]}.
func unprocessableMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil {
		return ""
	}
	var wrapped struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.Message != "" {
			return wrapped.Message
		}
		if len(wrapped.Errors) > 0 {
			return strings.Join(wrapped.Errors, "; ")
		}
	}
	return strings.TrimSpace(string(raw))
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
