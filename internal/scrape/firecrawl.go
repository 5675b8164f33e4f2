package scrape

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/aaryan23/cold-email-os/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client firecrawl.Client
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true. Firecrawl can attempt any URL as a fallback.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	if resp.Data.Markdown == "" {
		return nil, eris.New("firecrawl: empty page")
	}
	if resp.Data.Metadata.StatusCode == http.StatusTooManyRequests {
		return nil, &BlockedError{Scraper: f.Name(), URL: targetURL, Reason: BlockRateLimited}
	}
	if reason := detectReaderBlock(resp.Data.Markdown); reason != BlockNone {
		return nil, &BlockedError{Scraper: f.Name(), URL: targetURL, Reason: reason}
	}

	pageURL := resp.Data.Metadata.SourceURL
	if pageURL == "" {
		pageURL = targetURL
	}
	return &Result{
		Page: Page{
			URL:        pageURL,
			Title:      resp.Data.Metadata.Title,
			Content:    resp.Data.Markdown,
			StatusCode: resp.Data.Metadata.StatusCode,
		},
		Source: "firecrawl",
	}, nil
}
