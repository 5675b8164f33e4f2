// Package scrape fetches readable page content through a chain of providers,
// falling back from the hosted readers to a plain HTTP fetch.
package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. Scrapers are tried in order; the first
// successful result is returned.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Scrape tries each scraper in order for a single URL.
// Returns the first successful result, or an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if reason, blocked := BlockedBy(err); blocked {
			zap.L().Info("scrape: page blocked, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.String("reason", string(reason)),
			)
			lastErr = err
		} else if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: cancelled")
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

// FetchPage returns the page content for targetURL, or "" when every
// scraper fails.
func (c *Chain) FetchPage(ctx context.Context, targetURL string) string {
	result, err := c.Scrape(ctx, targetURL)
	if err != nil {
		zap.L().Warn("scrape: page fetch failed", zap.String("url", targetURL), zap.Error(err))
		return ""
	}
	return result.Page.Content
}
