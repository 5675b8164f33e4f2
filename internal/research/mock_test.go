package research

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/search"
)

// --- Gateway Mock ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CompleteJSON(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func phase(name string) any {
	return mock.MatchedBy(func(r llm.Request) bool { return r.Phase == name })
}

// --- Search fakes ---

type fakeVideos struct {
	videos []search.Video
}

func (f *fakeVideos) SearchVideos(_ context.Context, _ []string) []search.Video {
	return f.videos
}

type fakeWeb struct {
	mu      sync.Mutex
	queries []string
	results map[string][]search.WebResult
}

func (f *fakeWeb) SearchWeb(_ context.Context, q string) []search.WebResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.results[q]
}

type fakeThreads struct {
	byKeyword map[string][]string
}

func (f *fakeThreads) SearchThreads(_ context.Context, kw string) []string {
	return f.byKeyword[kw]
}

type fakeScraper struct {
	urls  []string
	posts []search.Post
}

func (f *fakeScraper) ScrapeThreads(_ context.Context, urls []string) []search.Post {
	f.urls = urls
	return f.posts
}

type fakeFetcher struct {
	content string
	calls   int
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ string) string {
	f.calls++
	return f.content
}

// --- Stage fakes ---

type videoStageFunc func(ctx context.Context, ti *TranscriptInsights) (*VideoResult, error)

func (f videoStageFunc) Run(ctx context.Context, ti *TranscriptInsights) (*VideoResult, error) {
	return f(ctx, ti)
}

type communityStageFunc func(ctx context.Context, ti *TranscriptInsights) (*CommunityResult, error)

func (f communityStageFunc) Run(ctx context.Context, ti *TranscriptInsights) (*CommunityResult, error) {
	return f(ctx, ti)
}

type competitorStageFunc func(ctx context.Context, ti *TranscriptInsights) (*CompetitorAnalysis, error)

func (f competitorStageFunc) Run(ctx context.Context, ti *TranscriptInsights) (*CompetitorAnalysis, error) {
	return f(ctx, ti)
}

type dnaStageFunc func(ctx context.Context, ti *TranscriptInsights, posts []search.Post, videos []search.Video) (*CustomerDNA, error)

func (f dnaStageFunc) Run(ctx context.Context, ti *TranscriptInsights, posts []search.Post, videos []search.Video) (*CustomerDNA, error) {
	return f(ctx, ti, posts, videos)
}

type fakePublisher struct {
	calls      int
	tenantID   string
	reportID   string
	reportJSON []byte
	reportText string
	err        error
}

func (p *fakePublisher) PublishReport(_ context.Context, tenantID, reportID string, reportJSON []byte, reportText string) error {
	p.calls++
	p.tenantID = tenantID
	p.reportID = reportID
	p.reportJSON = reportJSON
	p.reportText = reportText
	return p.err
}

// --- Report store mock ---

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *mockReportStore) CreatePendingReport(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error) {
	args := m.Called(ctx, tenantID, transcript, websiteURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResearchReport), args.Error(1)
}

func (m *mockReportStore) FailReport(ctx context.Context, reportID, msg string) error {
	args := m.Called(ctx, reportID, msg)
	return args.Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job model.ResearchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// --- Fixtures ---

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func repeat(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return out
}

func transcriptFixture() *TranscriptInsights {
	return &TranscriptInsights{
		ClientName:        "Acme Ops",
		ClientOffer:       "Acme Ops helps agency owners win back time by automating fulfilment",
		ICPSummary:        "Agency owners with 5-20 staff drowning in delivery work.",
		PainfulProblem:    "They spend every evening fixing client deliverables.",
		SearchKeywords:    repeat("agency keyword", 15),
		CompetitorQueries: repeat("best agency tool", 5),
	}
}

func videoInsightsFixture(summaryURLs ...string) *VideoInsights {
	vi := &VideoInsights{
		Problems: []InsightItem{{Name: "Founder bottleneck", Description: "Everything routes through the owner.", SubPoints: []string{"late nights"}}},
		Desires:  []InsightItem{{Name: "Quiet inbox", Description: "They want the team to run without them.", SubPoints: []string{"real weekends"}}},
	}
	for _, u := range summaryURLs {
		vi.VideoSummaries = append(vi.VideoSummaries, VideoSummary{Title: "video " + u, URL: u, Summary: "A founder explains delegation."})
	}
	if vi.VideoSummaries == nil {
		vi.VideoSummaries = []VideoSummary{}
	}
	return vi
}

func segmentFixture(name string) Segment {
	np := NamedPoints{Name: "Control", Points: []string{"checks every task", "burns out"}}
	return Segment{
		Name:        name,
		Problems:    repeat("problem", 5),
		Desires:     repeat("desire", 5),
		CoreDriver:  "Fear of losing clients.",
		Motivations: []NamedPoints{np, np, np, np, np},
		Tradeoffs:   []NamedPoints{np, np, np, np, np},
		Citations:   []string{"How do I stop doing everything myself?"},
	}
}

func communityFixture() *CommunitySegments {
	return &CommunitySegments{
		OverarchingDream: "An agency that runs without the founder.",
		Segments:         []Segment{segmentFixture("The Firefighter"), segmentFixture("The Perfectionist")},
	}
}

func competitorFixture() *CompetitorAnalysis {
	return &CompetitorAnalysis{Competitors: []Competitor{{
		Name:                "DeliverCo",
		URL:                 "https://deliverco.example",
		MarketingQuotes:     []string{"Scale without hiring", "Your fulfilment team"},
		PositioningStrength: "Speed: promises a two-week launch.",
		StrategicGap:        "Trust: no proof for small agencies.",
	}}}
}

func dnaFixture(quotes ...string) *CustomerDNA {
	hook := Hook{Hook: "You are the bottleneck.", Annotation: "identity"}
	dna := &CustomerDNA{
		TargetCustomer:      "Agency owners",
		CoreStruggle:        "Delivery overload",
		Offer:               "Done-for-you fulfilment",
		DailyReality:        "Up at 6 fixing decks.",
		InternalNarrative:   "If I let go it breaks.",
		SolutionArchaeology: "Tried VAs and freelancers.",
		BeliefSystem:        "Nobody cares like I do.",
		MarketIntelligence:  "Crowded with generic offers.",
		PositioningAngle:    "Founder freedom",
		Hooks:               Hooks{Loss: hook, Aspiration: hook, PatternInterrupt: hook, Identity: hook},
		PatternSummary:      PatternSummary{MostCommonEmotion: "exhaustion"},
		ActionSummary: ActionSummary{
			ProductImplications:     repeat("product", 3),
			PositioningImplications: repeat("positioning", 3),
			GTMImplications:         repeat("gtm", 3),
			PricingImplications:     repeat("pricing", 3),
			ContentImplications:     repeat("content", 3),
			BiggestRisk:             "Commoditisation",
			BiggestOpportunity:      "Owner time",
		},
	}
	for _, h := range repeat("headline", 3) {
		dna.Headlines = append(dna.Headlines, Headline{Headline: h, Annotation: "why"})
	}
	for _, o := range repeat("objection", 5) {
		dna.Objections = append(dna.Objections, Objection{Objection: o, Rebuttal: "rebuttal"})
	}
	for _, term := range repeat("term", 8) {
		dna.LanguageToolkit = append(dna.LanguageToolkit, ToolkitTerm{Term: term, Why: "common"})
	}
	if len(quotes) == 0 {
		quotes = repeat("quote", 10)
	}
	for i, q := range quotes {
		dna.Quotes = append(dna.Quotes, Quote{Number: i + 1, Quote: q, Platform: "Reddit", PrimaryEmotion: "frustration"})
	}
	return dna
}
