package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/pkg/perplexity"
)

func TestFallbackWeb_PrimaryWins(t *testing.T) {
	primary := &fakeWeb{results: []WebResult{{URL: "https://a.com"}}}
	pplx := new(mockPerplexityClient)

	out := NewFallbackWeb(primary, pplx).SearchWeb(context.Background(), "q")
	assert.Equal(t, primary.results, out)
	pplx.AssertNotCalled(t, "ChatCompletion", mock.Anything, mock.Anything)
}

func TestFallbackWeb_UsesSearchResults(t *testing.T) {
	pplx := new(mockPerplexityClient)
	pplx.On("ChatCompletion", mock.Anything, mock.Anything).Return(&perplexity.ChatCompletionResponse{
		SearchResults: []perplexity.SearchResult{{Title: "Rival", URL: "https://rival.com", Snippet: "Rival automates the close"}},
	}, nil)

	out := NewFallbackWeb(&fakeWeb{}, pplx).SearchWeb(context.Background(), "q")
	assert.Equal(t, []WebResult{{Title: "Rival", URL: "https://rival.com", Description: "Rival automates the close"}}, out)
}

func TestFallbackWeb_UsesCitations(t *testing.T) {
	pplx := new(mockPerplexityClient)
	pplx.On("ChatCompletion", mock.Anything, mock.Anything).Return(&perplexity.ChatCompletionResponse{
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Content: "Rival is the main alternative."}}},
		Citations: []string{"https://rival.com"},
	}, nil)

	out := NewFallbackWeb(&fakeWeb{}, pplx).SearchWeb(context.Background(), "q")
	if assert.Len(t, out, 1) {
		assert.Equal(t, "https://rival.com", out[0].URL)
		assert.Equal(t, "Rival is the main alternative.", out[0].Description)
	}
}

func TestFallbackWeb_ErrorAndNilClient(t *testing.T) {
	pplx := new(mockPerplexityClient)
	pplx.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	assert.Nil(t, NewFallbackWeb(&fakeWeb{}, pplx).SearchWeb(context.Background(), "q"))
	assert.Nil(t, NewFallbackWeb(&fakeWeb{}, nil).SearchWeb(context.Background(), "q"))
}
