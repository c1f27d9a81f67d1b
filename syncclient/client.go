package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client talks to a BotecoPro sync server. The zero Token sends requests
// unauthenticated; whether that is allowed is server policy.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// DownloadParams are the query parameters of the download operation. Since
// is replayed verbatim; Limit <= 0 leaves the page size to the server.
type DownloadParams struct {
	CompanyID string
	Since     Checkpoint
	Limit     int
}

// Meta fetches server capability metadata. Read-only and safe to retry.
func (c *Client) Meta(ctx context.Context) (*MetaResponse, error) {
	var out MetaResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sync/meta", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches all changes for a company since the given checkpoint.
// Safe to retry with the same checkpoint; nothing is applied until the
// response is fully decoded.
func (c *Client) Download(ctx context.Context, params DownloadParams) (*DownloadResponse, error) {
	q := url.Values{}
	q.Set("company_id", params.CompanyID)
	if !params.Since.IsZero() {
		q.Set("since", params.Since.String())
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}

	var out DownloadResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sync/download?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload pushes a batch of locally changed rows. Not idempotent on its own;
// set UploadRequest.BatchID and reuse it when retrying the same batch.
func (c *Client) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out UploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sync/upload", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newProtocolError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// newProtocolError reads the error body best-effort, falling back to the
// status text when the body cannot be read.
func newProtocolError(resp *http.Response) *SyncProtocolError {
	text := ""
	if data, err := io.ReadAll(resp.Body); err == nil {
		text = string(data)
	}
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &SyncProtocolError{StatusCode: resp.StatusCode, Body: text}
}
