package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/config"
	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/kb"
	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/rag"
	"github.com/aaryan23/cold-email-os/internal/research"
	"github.com/aaryan23/cold-email-os/internal/scrape"
	"github.com/aaryan23/cold-email-os/internal/search"
	"github.com/aaryan23/cold-email-os/internal/store"
	anthropicpkg "github.com/aaryan23/cold-email-os/pkg/anthropic"
	"github.com/aaryan23/cold-email-os/pkg/apify"
	"github.com/aaryan23/cold-email-os/pkg/firecrawl"
	"github.com/aaryan23/cold-email-os/pkg/jina"
	"github.com/aaryan23/cold-email-os/pkg/perplexity"
)

// appEnv holds the store and the components built on top of it.
type appEnv struct {
	Store      store.Store
	LLM        llm.Gateway
	Ingester   *kb.Ingester
	Retriever  *rag.Engine
	Generator  *generation.Generator
	Researcher *research.Orchestrator

	redis *redis.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store and builds the KB, retrieval and generation
// components. withResearch also builds the research pipeline and its
// search providers. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withResearch bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &appEnv{
		Store:     st,
		Ingester:  kb.NewIngester(st),
		Retriever: rag.NewEngine(st),
	}

	if cfg.Anthropic.Key != "" {
		env.LLM = llm.New(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.InputTokensPerMinute)
		env.Generator = generation.New(st, env.Retriever, env.LLM)
	}

	if withResearch {
		if env.LLM == nil {
			env.Close()
			return nil, eris.New("anthropic key is required for research (COLDEMAIL_ANTHROPIC_KEY)")
		}
		cache, rdb, err := initCache(ctx, cfg.Cache, cfg.Redis, st)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.redis = rdb
		env.Researcher = buildResearcher(env, cache)
	}

	return env, nil
}

// initCache selects the search cache backend. A nil Cache disables caching.
func initCache(ctx context.Context, cc config.CacheConfig, rc config.RedisConfig, st store.Store) (search.Cache, *redis.Client, error) {
	switch cc.Driver {
	case "", "none":
		return nil, nil, nil
	case "store":
		return search.NewStoreCache(st), nil, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, eris.Wrapf(err, "ping redis %s", rc.Addr)
		}
		zap.L().Info("search cache using redis", zap.String("addr", rc.Addr))
		return search.NewRedisCache(rdb), rdb, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache driver: %s", cc.Driver)
	}
}

func buildResearcher(env *appEnv, cache search.Cache) *research.Orchestrator {
	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)
	apifyClient := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))

	// Perplexity backs web search only when configured.
	var pplx perplexity.Client
	if cfg.Perplexity.Key != "" {
		pplx = perplexity.NewClient(cfg.Perplexity.Key, perplexity.WithBaseURL(cfg.Perplexity.BaseURL), perplexity.WithModel(cfg.Perplexity.Model))
	}

	// Scrape chain: Jina primary, Firecrawl fallback, then a local fetch.
	scrapers := []scrape.Scraper{scrape.NewJinaAdapter(jinaClient)}
	if cfg.Firecrawl.Key != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))))
	}
	scrapers = append(scrapers, scrape.NewLocalScraper())
	chain := scrape.NewChain(scrapers...)

	jinaSearch := search.NewJina(jinaClient)
	var web search.WebSearcher = search.NewFallbackWeb(jinaSearch, pplx)
	var fetcher search.PageFetcher = chain
	if cache != nil {
		web = search.NewCachedWeb(web, cache, cfg.Cache.TTL())
		fetcher = search.NewCachedFetcher(chain, cache, cfg.Cache.TTL())
	}

	apifySearch := search.NewApify(apifyClient, search.ApifyConfig{
		YouTubeActor: cfg.Apify.YouTubeActor,
		RedditActor:  cfg.Apify.RedditActor,
		RunTimeout:   time.Duration(cfg.Apify.RunTimeout) * time.Second,
	})

	conc := cfg.Research.SearchConcurrency
	return &research.Orchestrator{
		Fetcher:    fetcher,
		LLM:        env.LLM,
		Video:      &research.VideoMiner{Videos: apifySearch, Web: web, LLM: env.LLM, Concurrency: conc},
		Community:  &research.CommunityMiner{Threads: jinaSearch, Scraper: apifySearch, LLM: env.LLM, Concurrency: conc},
		Competitor: &research.CompetitorAnalyzer{Web: web, LLM: env.LLM, Concurrency: conc},
		DNA:        &research.DNASynthesizer{LLM: env.LLM, VerifyQuotes: cfg.Research.VerifyQuotes},
		Publisher:  env.Store,
	}
}
