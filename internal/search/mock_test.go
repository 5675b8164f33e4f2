package search

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/pkg/apify"
	"github.com/aaryan23/cold-email-os/pkg/jina"
	"github.com/aaryan23/cold-email-os/pkg/perplexity"
)

// --- Jina Mock ---

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockJinaClient) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

// --- Apify Mock ---

type mockApifyClient struct {
	mock.Mock
}

func (m *mockApifyClient) StartRun(ctx context.Context, actorID string, input any) (*apify.Run, error) {
	args := m.Called(ctx, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apify.Run), args.Error(1)
}

func (m *mockApifyClient) GetRun(ctx context.Context, runID string) (*apify.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apify.Run), args.Error(1)
}

func (m *mockApifyClient) DatasetItems(ctx context.Context, datasetID string, limit int) (json.RawMessage, error) {
	args := m.Called(ctx, datasetID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// --- Fakes ---

type fakeWeb struct {
	results []WebResult
	calls   int
}

func (f *fakeWeb) SearchWeb(_ context.Context, _ string) []WebResult {
	f.calls++
	return f.results
}

type fakeFetcher struct {
	text  string
	calls int
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ string) string {
	f.calls++
	return f.text
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}
