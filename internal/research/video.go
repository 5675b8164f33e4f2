package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/search"
)

const (
	stageVideo = "video"

	saturatedViews      = 2_000_000
	maxCandidateVideos  = 50
	maxPromptVideos     = 20
	maxVideoTranscript  = 2000
	maxFallbackKeywords = 5
	maxFallbackVideos   = 15
	maxFallbackSnippet  = 1500
	videoMaxTokens      = 8192
)

// VideoResult is the video stage output plus the filtered raw videos the
// customer DNA stage reads.
type VideoResult struct {
	Insights  *VideoInsights
	RawVideos []search.Video
}

// VideoMiner mines problems and desires from video content.
type VideoMiner struct {
	Videos      search.VideoSearcher
	Web         search.WebSearcher
	LLM         llm.Gateway
	Concurrency int
}

const videoSystem = `You are a B2B market researcher and buyer psychologist.
Extract deep, strategic, psychological insights from video content, not surface observations.
Every insight must be named, described with psychological depth, and grounded in behaviour.
Return valid JSON only. No markdown. No explanation. No code fences.`

var emptyVideoItem = InsightItem{
	Name:        "No data",
	Description: "YouTube research returned no results.",
	SubPoints:   []string{"Check Apify credits or retry", "Try different keywords"},
}

// emptyVideoResult is returned when neither discovery path finds a video.
func emptyVideoResult() *VideoResult {
	items := func() []InsightItem {
		out := make([]InsightItem, 6)
		for i := range out {
			out[i] = emptyVideoItem
		}
		return out
	}
	return &VideoResult{
		Insights: &VideoInsights{
			Problems:       items(),
			Desires:        items(),
			VideoSummaries: []VideoSummary{},
		},
	}
}

// Run executes the video stage.
func (m *VideoMiner) Run(ctx context.Context, ti *TranscriptInsights) (*VideoResult, error) {
	log := zap.L().With(zap.String("stage", stageVideo))

	videos := FilterVideos(m.Videos.SearchVideos(ctx, ti.SearchKeywords))
	if len(videos) == 0 {
		log.Info("research: no videos from primary search, trying web fallback")
		videos = m.fallbackVideos(ctx, ti.SearchKeywords)
	}
	if len(videos) == 0 {
		log.Warn("research: video stage found nothing, using placeholder")
		return emptyVideoResult(), nil
	}

	raw, err := m.LLM.CompleteJSON(ctx, llm.Request{
		Phase:     stageVideo,
		System:    videoSystem,
		User:      videoPrompt(ti, videos),
		MaxTokens: videoMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	insights, err := decodeStrict[VideoInsights](stageVideo, raw)
	if err != nil {
		return nil, err
	}
	insights.VideoSummaries = keepKnownSummaries(insights.VideoSummaries, videos)

	log.Info("research: video stage complete",
		zap.Int("videos", len(videos)),
		zap.Int("summaries", len(insights.VideoSummaries)),
	)
	return &VideoResult{Insights: insights, RawVideos: videos}, nil
}

// FilterVideos dedupes by URL, drops saturated videos, and ranks the rest by
// views, keeping at most 50.
func FilterVideos(videos []search.Video) []search.Video {
	seen := make(map[string]bool, len(videos))
	var out []search.Video
	for _, v := range videos {
		if v.URL == "" || seen[v.URL] {
			continue
		}
		seen[v.URL] = true
		if v.ViewCount >= saturatedViews {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ViewCount > out[j].ViewCount })
	if len(out) > maxCandidateVideos {
		out = out[:maxCandidateVideos]
	}
	return out
}

// fallbackVideos discovers videos through web search when the video
// searcher returns nothing.
func (m *VideoMiner) fallbackVideos(ctx context.Context, keywords []string) []search.Video {
	if m.Web == nil {
		return nil
	}
	if len(keywords) > maxFallbackKeywords {
		keywords = keywords[:maxFallbackKeywords]
	}

	batches := make([][]search.WebResult, len(keywords))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(m.Concurrency))
	for i, kw := range keywords {
		g.Go(func() error {
			batches[i] = m.Web.SearchWeb(gCtx, kw+" site:youtube.com")
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var videos []search.Video
	for _, batch := range batches {
		for _, r := range batch {
			if r.URL == "" || !strings.Contains(r.URL, "youtube.com") || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			videos = append(videos, search.Video{
				ID:        fmt.Sprintf("web-%d", len(videos)),
				Title:     r.Title,
				URL:       r.URL,
				Subtitles: joinNonEmpty("\n", r.Title, r.Description, truncate(r.Content, maxFallbackSnippet)),
			})
			if len(videos) >= maxFallbackVideos {
				return videos
			}
		}
	}
	return videos
}

// keepKnownSummaries drops summaries for videos that were not in the
// candidate list.
func keepKnownSummaries(summaries []VideoSummary, videos []search.Video) []VideoSummary {
	known := make(map[string]bool, len(videos))
	for _, v := range videos {
		known[v.URL] = true
	}
	out := make([]VideoSummary, 0, len(summaries))
	for _, s := range summaries {
		if known[s.URL] {
			out = append(out, s)
		}
	}
	return out
}

type videoPromptItem struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Channel    string `json:"channel"`
	Views      int64  `json:"views"`
	Transcript string `json:"transcript"`
}

func videoPrompt(ti *TranscriptInsights, videos []search.Video) string {
	if len(videos) > maxPromptVideos {
		videos = videos[:maxPromptVideos]
	}
	items := make([]videoPromptItem, len(videos))
	for i, v := range videos {
		items[i] = videoPromptItem{
			Title:      v.Title,
			URL:        v.URL,
			Channel:    v.ChannelName,
			Views:      v.ViewCount,
			Transcript: truncate(v.Subtitles, maxVideoTranscript),
		}
	}
	data, _ := json.MarshalIndent(items, "", "  ")

	return fmt.Sprintf(`ICP Summary: %s
Offer: %s

Analyze these videos as a buyer psychologist studying the ICP's mental world.
Extract strategic patterns: named archetypes, identity traps, paradoxes.

Return JSON with exactly this structure:

{
  "problems": [
    {"name": "Named pattern", "description": "1-2 sentences on the fear driving it", "sub_points": ["daily manifestation", "emotional or financial consequence"]}
  ],
  "desires": [
    {"name": "Named desire", "description": "1-2 sentences on the identity shift they crave", "sub_points": ["what success feels like", "how they want to be seen"]}
  ],
  "video_summaries": [
    {"title": "exact video title", "url": "exact video url", "summary": "2-3 sentences",
     "pain_points": [{"name": "...", "description": "..."}],
     "desires": [{"name": "...", "description": "..."}]}
  ]
}

Only summarise videos from the list below and copy their url exactly.

VIDEOS:
%s
`, ti.ICPSummary, ti.ClientOffer, data)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func concurrency(n int) int {
	if n <= 0 {
		return 5
	}
	return n
}
