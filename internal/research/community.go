package research

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/search"
)

const (
	stageCommunity = "community"

	maxThreadURLs      = 75
	maxScrapedPosts    = 100
	maxPromptPosts     = 30
	maxPostBody        = 1500
	communityMaxTokens = 8192
)

// CommunityResult is the community stage output plus the raw posts the
// customer DNA stage reads.
type CommunityResult struct {
	Insights *CommunitySegments
	RawPosts []search.Post
}

// CommunityMiner profiles customer segments from community threads.
type CommunityMiner struct {
	Threads     search.ThreadSearcher
	Scraper     search.ThreadScraper
	LLM         llm.Gateway
	Concurrency int
}

const communitySystem = `You are a digital anthropologist and buyer psychologist analysing online communities.
Extract deep psychological profiles: named archetypes, identity tensions, behavioural drivers.
Every segment must read like a real person the reader recognises.
Return valid JSON only. No markdown. No explanation. No code fences.`

// emptyCommunityResult is returned when no threads or posts were found.
func emptyCommunityResult() *CommunityResult {
	na := []string{"N/A", "N/A", "N/A", "N/A", "N/A"}
	note := NamedPoints{Name: "No data", Points: []string{"No Reddit data available", "Re-run with different keywords"}}
	notes := []NamedPoints{note, note, note, note, note}
	segment := func(name string) Segment {
		return Segment{
			Name:        name,
			Problems:    na,
			Desires:     na,
			CoreDriver:  "No data",
			Motivations: notes,
			Tradeoffs:   notes,
			Citations:   []string{},
		}
	}
	return &CommunityResult{
		Insights: &CommunitySegments{
			OverarchingDream: "No Reddit data available",
			Segments:         []Segment{segment("Segment A"), segment("Segment B")},
		},
	}
}

// Run executes the community stage.
func (m *CommunityMiner) Run(ctx context.Context, ti *TranscriptInsights) (*CommunityResult, error) {
	log := zap.L().With(zap.String("stage", stageCommunity))

	urls := m.searchThreads(ctx, ti.SearchKeywords)
	if len(urls) == 0 {
		log.Warn("research: no community threads found, using placeholder")
		return emptyCommunityResult(), nil
	}

	posts := dedupePosts(m.Scraper.ScrapeThreads(ctx, urls))
	if len(posts) > maxScrapedPosts {
		posts = posts[:maxScrapedPosts]
	}
	if len(posts) == 0 {
		log.Warn("research: community scrape returned no posts, using placeholder", zap.Int("urls", len(urls)))
		return emptyCommunityResult(), nil
	}

	raw, err := m.LLM.CompleteJSON(ctx, llm.Request{
		Phase:     stageCommunity,
		System:    communitySystem,
		User:      communityPrompt(ti, posts),
		MaxTokens: communityMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	insights, err := decodeStrict[CommunitySegments](stageCommunity, raw)
	if err != nil {
		return nil, err
	}

	log.Info("research: community stage complete", zap.Int("threads", len(urls)), zap.Int("posts", len(posts)))
	return &CommunityResult{Insights: insights, RawPosts: posts}, nil
}

// searchThreads fans keyword searches out in parallel and unites the
// results in keyword order.
func (m *CommunityMiner) searchThreads(ctx context.Context, keywords []string) []string {
	batches := make([][]string, len(keywords))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(m.Concurrency))
	for i, kw := range keywords {
		g.Go(func() error {
			batches[i] = m.Threads.SearchThreads(gCtx, kw)
			return nil
		})
	}
	_ = g.Wait()
	return unionOrdered(batches, maxThreadURLs)
}

// unionOrdered merges batches in order, dropping duplicates, up to limit.
func unionOrdered(batches [][]string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range batches {
		for _, s := range b {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func dedupePosts(posts []search.Post) []search.Post {
	seen := make(map[string]bool, len(posts))
	out := make([]search.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		out = append(out, p)
	}
	return out
}

type postPromptItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Body  string `json:"body"`
}

func communityPrompt(ti *TranscriptInsights, posts []search.Post) string {
	if len(posts) > maxPromptPosts {
		posts = posts[:maxPromptPosts]
	}
	items := make([]postPromptItem, len(posts))
	for i, p := range posts {
		items[i] = postPromptItem{Title: p.Title, URL: p.URL, Body: truncate(p.Content(), maxPostBody)}
	}
	data, _ := json.MarshalIndent(items, "", "  ")

	return fmt.Sprintf(`ICP Summary: %s
Offer: %s

Analyze these community discussions as a digital anthropologist.
Identify 2 distinct, named customer archetypes. Use the posters' own blunt language, not corporate speak.

Return JSON with exactly this structure:

{
  "overarching_dream": "the single deepest outcome both segments chase",
  "segments": [
    {
      "name": "behaviour-based archetype name",
      "problems": ["exactly 5 problems in their words"],
      "desires": ["exactly 5 desires in their words"],
      "core_driver": "2-3 sentences on their core fear and what they really seek",
      "motivations": [{"name": "named motivation", "points": ["belief or behaviour", "deeper layer"]}],
      "tradeoffs": [{"name": "named tradeoff", "points": ["observable pattern", "downstream cost"]}],
      "citations": ["up to 8 post titles that informed this segment"]
    }
  ]
}

Exactly 2 segments, each with exactly 5 motivations and 5 tradeoffs of exactly 2 points.

POSTS:
%s
`, ti.ICPSummary, ti.ClientOffer, data)
}
