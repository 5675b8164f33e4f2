package scrape

import (
	"context"
)

// Page is the readable content of one fetched URL.
type Page struct {
	URL        string
	Title      string
	Content    string
	StatusCode int
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
