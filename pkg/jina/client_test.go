package jina

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srvURL string) Client {
	return NewClient("test-key",
		WithBaseURL(srvURL),
		WithSearchBaseURL(srvURL),
		WithRetryBackoff(time.Millisecond),
	)
}

func TestRead_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		assert.Equal(t, "none", r.Header.Get("X-Retain-Images"))
		assert.Equal(t, "/https://acme.com/pricing", r.URL.Path)

		json.NewEncoder(w).Encode(ReadResponse{ //nolint:errcheck
			Code: 200,
			Data: ReadData{Title: "Pricing", URL: "https://acme.com/pricing", Content: "# Plans"},
		})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Read(context.Background(), "https://acme.com/pricing")
	require.NoError(t, err)
	assert.Equal(t, "Pricing", got.Data.Title)
	assert.Equal(t, "# Plans", got.Data.Content)
}

func TestRead_AnonymousOmitsAuthorization(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"code":200,"data":{"content":"ok"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient("", WithBaseURL(srv.URL)).Read(context.Background(), "https://acme.com")
	require.NoError(t, err)
}

func TestRead_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Read(context.Background(), "https://acme.com")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRead_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"code":200,"data":{"content":"finally"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Read(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "finally", got.Data.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_RetryExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Read(context.Background(), "https://acme.com")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRead_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("k", WithBaseURL(srv.URL)).Read(ctx, "https://acme.com")
	require.Error(t, err)
}

func TestSearch_HeadersAndResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dentist marketing pain", r.URL.Path)
		assert.Equal(t, "reddit.com", r.Header.Get("X-Site"))
		assert.Equal(t, "no-content", r.Header.Get("X-Respond-With"))
		assert.Empty(t, r.Header.Get("X-Engine"))

		json.NewEncoder(w).Encode(SearchResponse{ //nolint:errcheck
			Code: 200,
			Data: []SearchResult{
				{Title: "Help", URL: "https://www.reddit.com/r/Dentistry/comments/abc/help/"},
			},
		})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "dentist marketing pain",
		WithSite("reddit.com"), WithoutContent())
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Contains(t, got.Data[0].URL, "/comments/abc/")
}

func TestSearch_DirectEngine(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "direct", r.Header.Get("X-Engine"))
		w.Write([]byte(`{"code":200,"data":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "acme reviews", WithDirectEngine())
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestSearch_NoResults422(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got.Data)
}

func TestSearch_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`)) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal search response")
}

func TestRetryableStatusCode(t *testing.T) {
	assert.True(t, retryableStatusCode(http.StatusTooManyRequests))
	assert.True(t, retryableStatusCode(http.StatusBadGateway))
	assert.False(t, retryableStatusCode(http.StatusNotFound))
	assert.False(t, retryableStatusCode(http.StatusOK))
}
