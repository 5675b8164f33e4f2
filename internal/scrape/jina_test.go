package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aaryan23/cold-email-os/pkg/jina"
)

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

var longContent = "# Acme Corp\n\nWe build things and do stuff for people around the world. " +
	"This is a long enough content string to pass the fallback check which requires 100 chars."

func TestJinaAdapter_Name(t *testing.T) {
	t.Parallel()
	adapter := NewJinaAdapter(new(mockJinaClient))
	assert.Equal(t, "jina", adapter.Name())
	assert.True(t, adapter.Supports("https://example.com"))
}

func TestJinaAdapter_Scrape_Success(t *testing.T) {
	t.Parallel()
	client := new(mockJinaClient)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://acme.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://acme.com", Title: "Acme Corp", Content: longContent},
	}, nil)

	result, err := adapter.Scrape(context.Background(), "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, "jina", result.Source)
	assert.Equal(t, "https://acme.com", result.Page.URL)
	assert.Equal(t, "Acme Corp", result.Page.Title)
	assert.Equal(t, 200, result.Page.StatusCode)
	assert.Equal(t, longContent, result.Page.Content)
}

func TestJinaAdapter_Scrape_ClientError(t *testing.T) {
	t.Parallel()
	client := new(mockJinaClient)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://fail.com").Return(nil, errors.New("connection refused"))

	_, err := adapter.Scrape(context.Background(), "https://fail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestJinaAdapter_Scrape_NeedsFallback(t *testing.T) {
	t.Parallel()
	client := new(mockJinaClient)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://blocked.com").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://blocked.com", Content: "short"},
	}, nil)

	_, err := adapter.Scrape(context.Background(), "https://blocked.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs fallback")
}

func TestJinaAdapter_CircuitOpensAfterFailures(t *testing.T) {
	t.Parallel()
	client := new(mockJinaClient)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	for i := 0; i < 3; i++ {
		_, _ = adapter.Scrape(context.Background(), "https://acme.com")
	}
	assert.False(t, adapter.Supports("https://acme.com"))

	_, err := adapter.Scrape(context.Background(), "https://acme.com")
	require.Error(t, err)
	client.AssertNumberOfCalls(t, "Read", 3)
}

func TestJinaAdapter_ThinContentDoesNotTrip(t *testing.T) {
	t.Parallel()
	client := new(mockJinaClient)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, mock.Anything).Return(&jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "tiny"}}, nil)

	for i := 0; i < 5; i++ {
		_, _ = adapter.Scrape(context.Background(), "https://acme.com")
	}
	assert.True(t, adapter.Supports("https://acme.com"))
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		resp *jina.ReadResponse
		want bool
	}{
		{"nil", nil, true},
		{"non-200", &jina.ReadResponse{Code: 451, Data: jina.ReadData{Content: longContent}}, true},
		{"short", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "hi"}}, true},
		{"challenge", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Just a moment... " + strings.Repeat("x", 120)}}, true},
		{"long page mentioning cloudflare", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "cloudflare " + strings.Repeat("x", 1200)}}, false},
		{"ok", &jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: longContent}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsFallback(tt.resp))
		})
	}
}
