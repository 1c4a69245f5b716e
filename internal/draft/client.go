package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the draft service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("draft service: status=%d body=%s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client talks to a draft service over REST. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	authToken  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. It applies to a copy of the HTTP client,
// whichever order the options come in.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// NewClient expects baseURL without a trailing slash or /api prefix.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) CreateDraft(ctx context.Context, content json.RawMessage) (Record, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/drafts", CreateRequest{Content: content})
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := decodeResponse(resp, &record); err != nil {
		return Record{}, err
	}
	if record.ID == "" {
		return Record{}, fmt.Errorf("create draft: response has no id")
	}
	return record, nil
}

func (c *Client) UpdateDraft(ctx context.Context, id string, content json.RawMessage, updatedAt *time.Time) error {
	if id == "" {
		return fmt.Errorf("update draft: empty id")
	}
	resp, err := c.doRequest(ctx, http.MethodPut, "/api/drafts/"+url.PathEscape(id), UpdateRequest{Content: content, UpdatedAt: updatedAt})
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// GetDraft fetches a draft by id.
func (c *Client) GetDraft(ctx context.Context, id string) (Record, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/drafts/"+url.PathEscape(id), nil)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := decodeResponse(resp, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
