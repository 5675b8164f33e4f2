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
	stageCompetitor = "competitor"

	minDescriptionLen   = 10
	maxCompetitorSites  = 15
	maxCompetitors      = 5
	maxSiteExcerpt      = 3000
	competitorMaxTokens = 4096
)

// CompetitorAnalyzer dissects competitor positioning from web results.
type CompetitorAnalyzer struct {
	Web         search.WebSearcher
	LLM         llm.Gateway
	Concurrency int
}

const competitorSystem = `You are a competitive intelligence strategist with expertise in positioning and messaging.
Dissect competitor positioning at a psychological level: what they say and why it works or fails.
Return valid JSON only. No markdown. No explanation. No code fences.`

// Run executes the competitor stage.
func (a *CompetitorAnalyzer) Run(ctx context.Context, ti *TranscriptInsights) (*CompetitorAnalysis, error) {
	sites := a.searchSites(ctx, ti.CompetitorQueries)
	if len(sites) == 0 {
		zap.L().Warn("research: no competitor sites found, using placeholder", zap.String("stage", stageCompetitor))
		return &CompetitorAnalysis{Competitors: []Competitor{}}, nil
	}

	raw, err := a.LLM.CompleteJSON(ctx, llm.Request{
		Phase:     stageCompetitor,
		System:    competitorSystem,
		User:      competitorPrompt(ti, sites),
		MaxTokens: competitorMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := decodeStrict[CompetitorAnalysis](stageCompetitor, raw)
	if err != nil {
		return nil, err
	}
	if len(analysis.Competitors) > maxCompetitors {
		analysis.Competitors = analysis.Competitors[:maxCompetitors]
	}
	zap.L().Info("research: competitor stage complete",
		zap.Int("sites", len(sites)),
		zap.Int("competitors", len(analysis.Competitors)),
	)
	return analysis, nil
}

// searchSites runs every query in parallel, then flattens, dedupes and keeps
// results with a real description.
func (a *CompetitorAnalyzer) searchSites(ctx context.Context, queries []string) []search.WebResult {
	batches := make([][]search.WebResult, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(a.Concurrency))
	for i, q := range queries {
		g.Go(func() error {
			batches[i] = a.Web.SearchWeb(gCtx, q)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var out []search.WebResult
	for _, batch := range batches {
		for _, r := range batch {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			if len(r.Description) > minDescriptionLen {
				out = append(out, r)
			}
		}
	}
	return out
}

func competitorPrompt(ti *TranscriptInsights, sites []search.WebResult) string {
	if len(sites) > maxCompetitorSites {
		sites = sites[:maxCompetitorSites]
	}
	items := make([]search.WebResult, len(sites))
	for i, s := range sites {
		s.Content = truncate(s.Content, maxSiteExcerpt)
		items[i] = s
	}
	data, _ := json.MarshalIndent(items, "", "  ")

	return fmt.Sprintf(`Client Offer: %s
ICP Summary: %s

Analyze these websites and identify up to 5 direct competitors.
Exclude directories, review sites, blog posts, news articles and Fortune 500 enterprises.

For each competitor give 2 verbatim quotes from their homepage copy, their positioning strength
and their strategic gap, each as "Short label: 1-2 sentence explanation".

Return JSON:
{
  "competitors": [
    {"name": "Company name", "url": "website url",
     "marketing_quotes": ["verbatim quote", "second verbatim quote"],
     "positioning_strength": "Label: explanation",
     "strategic_gap": "Label: explanation"}
  ]
}

WEBSITES:
%s
`, ti.ClientOffer, ti.ICPSummary, data)
}
