package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/resilience"
	"github.com/aaryan23/cold-email-os/pkg/apify"
)

// Default actor IDs for the video and community scrapers.
const (
	DefaultYouTubeActor = "h7sDV53CddomktSi5"
	DefaultRedditActor  = "TwqHBuZZPHJxiQrTU"

	maxVideoQueries = 5
)

// ApifyConfig names the actors and bounds each run.
type ApifyConfig struct {
	YouTubeActor string
	RedditActor  string
	RunTimeout   time.Duration
	PollInterval time.Duration
}

// Apify implements VideoSearcher and ThreadScraper with Apify actor runs.
type Apify struct {
	client  apify.Client
	cfg     ApifyConfig
	breaker *resilience.CircuitBreaker
}

// NewApify creates an Apify-backed scraper. Start and dataset calls are
// retried on transient errors.
func NewApify(client apify.Client, cfg ApifyConfig) *Apify {
	if cfg.YouTubeActor == "" {
		cfg.YouTubeActor = DefaultYouTubeActor
	}
	if cfg.RedditActor == "" {
		cfg.RedditActor = DefaultRedditActor
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	return &Apify{
		client:  &retryingApify{Client: client},
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("apify", resilience.DefaultCircuitBreakerConfig()),
	}
}

// SearchVideos runs the YouTube actor over the first five queries.
func (a *Apify) SearchVideos(ctx context.Context, queries []string) []Video {
	if len(queries) == 0 {
		return nil
	}
	if len(queries) > maxVideoQueries {
		queries = queries[:maxVideoQueries]
	}
	input := map[string]any{
		"searchQueries":     queries,
		"maxResults":        3,
		"downloadSubtitles": true,
		"subtitleLanguage":  "en",
		"subtitleFormat":    "plaintext",
	}
	videos, err := runActor[Video](ctx, a, a.cfg.YouTubeActor, input)
	if err != nil {
		zap.L().Error("search: video scrape failed, returning empty", zap.Error(err))
		return nil
	}
	zap.L().Info("search: video scrape completed", zap.Int("count", len(videos)))
	return videos
}

// ScrapeThreads runs the Reddit actor over urls.
func (a *Apify) ScrapeThreads(ctx context.Context, urls []string) []Post {
	if len(urls) == 0 {
		return nil
	}
	start := make([]map[string]string, len(urls))
	for i, u := range urls {
		start[i] = map[string]string{"url": u}
	}
	input := map[string]any{
		"startUrls":      start,
		"maxComments":    100,
		"maxPosts":       100,
		"scrapeComments": false,
	}
	posts, err := runActor[Post](ctx, a, a.cfg.RedditActor, input)
	if err != nil {
		zap.L().Error("search: thread scrape failed, returning empty", zap.Error(err))
		return nil
	}
	zap.L().Info("search: thread scrape completed", zap.Int("count", len(posts)))
	return posts
}

func runActor[T any](ctx context.Context, a *Apify, actorID string, input any) ([]T, error) {
	opts := []apify.PollOption{apify.WithPollTimeout(a.cfg.RunTimeout)}
	if a.cfg.PollInterval > 0 {
		opts = append(opts, apify.WithPollInterval(a.cfg.PollInterval))
	}
	return resilience.ExecuteVal(ctx, a.breaker, func(ctx context.Context) ([]T, error) {
		return apify.RunActor[T](ctx, a.client, actorID, input, opts...)
	})
}

// retryingApify retries run starts and dataset reads on transient errors.
type retryingApify struct {
	apify.Client
}

func (r *retryingApify) StartRun(ctx context.Context, actorID string, input any) (*apify.Run, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("apify", "start_run")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*apify.Run, error) {
		return r.Client.StartRun(ctx, actorID, input)
	})
}

func (r *retryingApify) DatasetItems(ctx context.Context, datasetID string, limit int) (json.RawMessage, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("apify", "dataset_items")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (json.RawMessage, error) {
		return r.Client.DatasetItems(ctx, datasetID, limit)
	})
}
