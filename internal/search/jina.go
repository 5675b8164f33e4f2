package search

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/resilience"
	"github.com/aaryan23/cold-email-os/pkg/jina"
)

const (
	maxThreadsPerKeyword = 5
	maxWebResults        = 10
	maxWebContent        = 15000
)

var threadURLRe = regexp.MustCompile(`https?://(?:www\.)?reddit\.com/r/[^/]+/comments/[^\s)"]+`)

// Jina implements ThreadSearcher and WebSearcher over Jina Search.
type Jina struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJina creates a Jina-backed searcher.
func NewJina(client jina.Client) *Jina {
	return &Jina{
		client:  client,
		breaker: resilience.NewCircuitBreaker("jina_search", resilience.DefaultCircuitBreakerConfig()),
	}
}

// SearchThreads returns up to five unique reddit comment-thread URLs.
func (j *Jina) SearchThreads(ctx context.Context, keyword string) []string {
	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.SearchResponse, error) {
		return j.client.Search(ctx, keyword, jina.WithSite("reddit.com"), jina.WithoutContent())
	})
	if err != nil {
		zap.L().Warn("search: thread search failed", zap.String("keyword", keyword), zap.Error(err))
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	add := func(text string) bool {
		for _, u := range threadURLRe.FindAllString(text, -1) {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			if len(urls) >= maxThreadsPerKeyword {
				return true
			}
		}
		return false
	}
	for _, r := range resp.Data {
		if add(r.URL) || add(r.Content) {
			break
		}
	}
	return urls
}

// SearchWeb returns up to ten results with content capped at 15000 chars.
func (j *Jina) SearchWeb(ctx context.Context, query string) []WebResult {
	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.SearchResponse, error) {
		return j.client.Search(ctx, query, jina.WithDirectEngine())
	})
	if err != nil {
		zap.L().Warn("search: web search failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var out []WebResult
	for _, r := range resp.Data {
		if r.URL == "" {
			continue
		}
		out = append(out, WebResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Content:     truncate(r.Content, maxWebContent),
		})
		if len(out) >= maxWebResults {
			break
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
