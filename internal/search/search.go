// Package search declares the fail-soft research capabilities and their
// provider-backed implementations. No capability method returns an error:
// failures are logged and surface as empty results.
package search

import (
	"context"
)

// Post is one scraped community thread.
type Post struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text,omitempty"`
	Body  string `json:"body,omitempty"`
}

// Content returns the post text, preferring Text over Body.
func (p Post) Content() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Body
}

// Video is one video search hit with its subtitles.
type Video struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	ChannelName string `json:"channelName"`
	ViewCount   int64  `json:"viewCount"`
	Likes       int64  `json:"likes,omitempty"`
	Date        string `json:"date,omitempty"`
	Subtitles   string `json:"subtitles,omitempty"`
}

// WebResult is one web search hit.
type WebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
}

// ThreadSearcher finds community thread URLs for a keyword.
type ThreadSearcher interface {
	SearchThreads(ctx context.Context, keyword string) []string
}

// ThreadScraper fetches the posts behind thread URLs.
type ThreadScraper interface {
	ScrapeThreads(ctx context.Context, urls []string) []Post
}

// VideoSearcher finds videos for a set of queries.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, queries []string) []Video
}

// WebSearcher runs a keyword web search.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string) []WebResult
}

// PageFetcher returns readable page text, or "" on failure.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) string
}
