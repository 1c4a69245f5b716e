package draft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Service = (*Client)(nil)

const body = `{"content":[{"type":"paragraph"}],"type":"doc"}`

func TestCreateDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/drafts", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.JSONEq(t, body, string(req.Content))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"drf_1","content":` + body + `,"updatedAt":"2026-10-01T10:00:00Z"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", WithAuthToken("tok"))
	record, err := client.CreateDraft(context.Background(), json.RawMessage(body))
	require.NoError(t, err)
	assert.Equal(t, "drf_1", record.ID)
	assert.Equal(t, time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC), record.UpdatedAt)
}

func TestCreateDraftWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CreateDraft(context.Background(), json.RawMessage(body))
	require.Error(t, err)
}

func TestUpdateDraft(t *testing.T) {
	stamp := time.Date(2026, 10, 2, 8, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/drafts/drf_1", r.URL.Path)

		var req UpdateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.NotNil(t, req.UpdatedAt) {
			assert.True(t, stamp.Equal(*req.UpdatedAt))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpdateDraft(context.Background(), "drf_1", json.RawMessage(body), &stamp)
	require.NoError(t, err)
}

func TestUpdateDraftOmitsMissingTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "updatedAt")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).UpdateDraft(context.Background(), "drf_1", json.RawMessage(body), nil))
}

func TestNon2xxIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).UpdateDraft(context.Background(), "drf_1", json.RawMessage(body), nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "draft service: status=502 body=upstream down", apiErr.Error())
}

func TestTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).CreateDraft(context.Background(), json.RawMessage(body))
	require.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).CreateDraft(ctx, json.RawMessage(body))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestTimeoutLeavesCallerClientUntouched(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for name, opts := range map[string][]Option{
		"timeout last":  {WithHTTPClient(shared), WithTimeout(time.Second)},
		"timeout first": {WithTimeout(time.Second), WithHTTPClient(shared)},
	} {
		client := NewClient("http://drafts.local", opts...)
		assert.Equal(t, time.Second, client.httpClient.Timeout, name)
		assert.NotSame(t, shared, client.httpClient, name)
	}
	assert.Equal(t, time.Minute, shared.Timeout)

	plain := NewClient("http://drafts.local", WithHTTPClient(shared))
	assert.Same(t, shared, plain.httpClient)
}

func TestTimeoutBoundsSlowService(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, WithTimeout(50*time.Millisecond), WithHTTPClient(&http.Client{}))
	start := time.Now()
	_, err := client.CreateDraft(context.Background(), json.RawMessage(body))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
