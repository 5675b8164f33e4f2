package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/pkg/perplexity"
)

// FallbackWeb tries the primary web searcher and asks Perplexity for the
// pages it consulted when the primary comes back empty.
type FallbackWeb struct {
	primary    WebSearcher
	perplexity perplexity.Client
}

// NewFallbackWeb creates a FallbackWeb. A nil Perplexity client disables
// the fallback.
func NewFallbackWeb(primary WebSearcher, pplx perplexity.Client) *FallbackWeb {
	return &FallbackWeb{primary: primary, perplexity: pplx}
}

// SearchWeb implements WebSearcher.
func (f *FallbackWeb) SearchWeb(ctx context.Context, query string) []WebResult {
	if results := f.primary.SearchWeb(ctx, query); len(results) > 0 {
		return results
	}
	if f.perplexity == nil {
		return nil
	}

	resp, err := f.perplexity.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: "Find the most relevant web pages for the query. Answer briefly."},
			{Role: "user", Content: query},
		},
	})
	if err != nil {
		zap.L().Warn("search: perplexity fallback failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var out []WebResult
	for _, r := range resp.SearchResults {
		out = append(out, WebResult{Title: r.Title, URL: r.URL, Description: r.Snippet})
	}
	if len(out) == 0 {
		for _, u := range resp.Citations {
			out = append(out, WebResult{URL: u, Description: truncate(resp.Answer(), 500)})
		}
	}
	if len(out) > maxWebResults {
		out = out[:maxWebResults]
	}
	zap.L().Debug("search: perplexity fallback used", zap.String("query", query), zap.Int("results", len(out)))
	return out
}
