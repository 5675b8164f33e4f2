package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/aaryan23/cold-email-os/internal/resilience"
	"github.com/aaryan23/cold-email-os/pkg/jina"
)

// errNeedsFallback marks a Jina answer that arrived but holds no usable
// content. It does not count against the breaker.
var errNeedsFallback = eris.New("jina: response needs fallback")

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
// Three consecutive failures open the circuit for 60s, sending every URL
// straight to the next scraper.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client: client,
		breaker: resilience.NewCircuitBreaker("jina_reader", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			ShouldTrip:       shouldTrip,
		}),
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*jina.ReadResponse, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			if reason := detectReaderBlock(resp.Data.Content); reason != BlockNone {
				return nil, &BlockedError{Scraper: "jina", URL: targetURL, Reason: reason}
			}
		}
		if needsFallback(resp) {
			return nil, errNeedsFallback
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Page: Page{
			URL:        resp.Data.URL,
			Title:      resp.Data.Title,
			Content:    resp.Data.Content,
			StatusCode: resp.Code,
		},
		Source: "jina",
	}, nil
}

// shouldTrip keeps thin or blocked pages from opening the circuit. Those
// say nothing about Jina's health.
func shouldTrip(err error) bool {
	if eris.Is(err, errNeedsFallback) {
		return false
	}
	_, blocked := BlockedBy(err)
	return !blocked
}

// needsFallback checks whether a Jina response is empty or a challenge page
// and should be retried with a different scraper.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}

	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < 100 {
		return true
	}

	return detectReaderBlock(content) != BlockNone
}
