package research

import (
	"encoding/json"
	"strings"
)

// TranscriptInsights is the structured reading of an onboarding transcript
// that every later stage builds on.
type TranscriptInsights struct {
	ClientName        string   `json:"client_name" validate:"required"`
	ClientOffer       string   `json:"client_offer" validate:"required"`
	ICPSummary        string   `json:"icp_summary" validate:"required"`
	PainfulProblem    string   `json:"painful_problem" validate:"required"`
	SearchKeywords    []string `json:"search_keywords" validate:"len=15,dive,required"`
	CompetitorQueries []string `json:"competitor_queries" validate:"len=5,dive,required"`
}

// InsightItem is a named problem or desire with supporting points.
type InsightItem struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	SubPoints   []string `json:"sub_points" validate:"min=1"`
}

// NamedNote is a short named observation.
type NamedNote struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// VideoSummary describes one analysed video.
type VideoSummary struct {
	Title      string      `json:"title" validate:"required"`
	URL        string      `json:"url" validate:"required"`
	Summary    string      `json:"summary" validate:"required"`
	PainPoints []NamedNote `json:"pain_points" validate:"dive"`
	Desires    []NamedNote `json:"desires" validate:"dive"`
}

// VideoInsights is the video stage output.
type VideoInsights struct {
	Problems       []InsightItem  `json:"problems" validate:"min=1,dive"`
	Desires        []InsightItem  `json:"desires" validate:"min=1,dive"`
	VideoSummaries []VideoSummary `json:"video_summaries" validate:"dive"`
}

// NamedPoints is a named motivation or tradeoff with exactly two points.
type NamedPoints struct {
	Name   string   `json:"name" validate:"required"`
	Points []string `json:"points" validate:"len=2"`
}

// Segment is one customer archetype found in community threads.
type Segment struct {
	Name        string        `json:"name" validate:"required"`
	Problems    []string      `json:"problems" validate:"len=5"`
	Desires     []string      `json:"desires" validate:"len=5"`
	CoreDriver  string        `json:"core_driver" validate:"required"`
	Motivations []NamedPoints `json:"motivations" validate:"len=5,dive"`
	Tradeoffs   []NamedPoints `json:"tradeoffs" validate:"len=5,dive"`
	Citations   []string      `json:"citations"`
}

// CommunitySegments is the community stage output.
type CommunitySegments struct {
	OverarchingDream string    `json:"overarching_dream" validate:"required"`
	Segments         []Segment `json:"segments" validate:"len=2,dive"`
}

// Competitor is one analysed competitor.
type Competitor struct {
	Name                string   `json:"name" validate:"required"`
	URL                 string   `json:"url"`
	MarketingQuotes     []string `json:"marketing_quotes" validate:"len=2"`
	PositioningStrength string   `json:"positioning_strength" validate:"required"`
	StrategicGap        string   `json:"strategic_gap" validate:"required"`
}

// CompetitorAnalysis is the competitor stage output.
type CompetitorAnalysis struct {
	Competitors []Competitor `json:"competitors" validate:"dive"`
}

// Headline is a headline with its rationale.
type Headline struct {
	Headline   string `json:"headline" validate:"required"`
	Annotation string `json:"annotation"`
}

// Hook is an opening line with its rationale.
type Hook struct {
	Hook       string `json:"hook" validate:"required"`
	Annotation string `json:"annotation"`
}

// Hooks holds the four required hook styles.
type Hooks struct {
	Loss             Hook `json:"loss"`
	Aspiration       Hook `json:"aspiration"`
	PatternInterrupt Hook `json:"pattern_interrupt"`
	Identity         Hook `json:"identity"`
}

// Objection pairs a buyer objection with its rebuttal.
type Objection struct {
	Objection string `json:"objection" validate:"required"`
	Rebuttal  string `json:"rebuttal" validate:"required"`
}

// ToolkitTerm is a resonant phrase from the corpus.
type ToolkitTerm struct {
	Term   string     `json:"term" validate:"required"`
	Why    string     `json:"why"`
	Quotes StringList `json:"quotes,omitempty"`
}

// Quote is a verbatim line extracted from the raw corpus. Verified is set
// after validation by checking the quote against the corpus.
type Quote struct {
	Number              int    `json:"number"`
	Quote               string `json:"quote" validate:"required"`
	Platform            string `json:"platform" validate:"required"`
	Source              string `json:"source"`
	PrimaryEmotion      string `json:"primary_emotion" validate:"required"`
	BeliefSignal        string `json:"belief_signal,omitempty"`
	DecisionImplication string `json:"decision_implication,omitempty"`
	Verified            *bool  `json:"verified,omitempty"`
}

// PatternSummary is section 8 of the customer DNA report.
type PatternSummary struct {
	MostCommonEmotion string   `json:"most_common_emotion"`
	RecurringLanguage string   `json:"recurring_language"`
	DominantBelief    string   `json:"dominant_belief"`
	KeyPattern        string   `json:"key_pattern"`
	SuggestedQueries  []string `json:"suggested_queries"`
}

// ActionSummary is section 9 of the customer DNA report.
type ActionSummary struct {
	ProductImplications     []string `json:"product_implications" validate:"min=3"`
	PositioningImplications []string `json:"positioning_implications" validate:"min=3"`
	GTMImplications         []string `json:"gtm_implications" validate:"min=3"`
	PricingImplications     []string `json:"pricing_implications" validate:"min=3"`
	ContentImplications     []string `json:"content_implications" validate:"min=3"`
	BiggestRisk             string   `json:"biggest_risk" validate:"required"`
	BiggestOpportunity      string   `json:"biggest_opportunity" validate:"required"`
}

// QuoteCheck records how many quotes were found in the raw corpus.
type QuoteCheck struct {
	Checked  int `json:"checked"`
	Verified int `json:"verified"`
}

// CustomerDNA is the nine-section psychographic report.
type CustomerDNA struct {
	TargetCustomer    string `json:"target_customer" validate:"required"`
	CoreStruggle      string `json:"core_struggle" validate:"required"`
	Offer             string `json:"offer" validate:"required"`
	PlatformsSearched string `json:"platforms_searched"`
	QuoteYield        string `json:"quote_yield"`

	DailyReality        string `json:"daily_reality" validate:"required"`
	InternalNarrative   string `json:"internal_narrative" validate:"required"`
	SolutionArchaeology string `json:"solution_archaeology" validate:"required"`
	BeliefSystem        string `json:"belief_system" validate:"required"`
	MarketIntelligence  string `json:"market_intelligence" validate:"required"`

	Headlines        []Headline    `json:"headlines" validate:"min=3,dive"`
	Hooks            Hooks         `json:"hooks"`
	Objections       []Objection   `json:"objections" validate:"min=5,dive"`
	PositioningAngle string        `json:"positioning_angle" validate:"required"`
	LanguageToolkit  []ToolkitTerm `json:"language_toolkit" validate:"min=8,dive"`

	Quotes []Quote `json:"quotes" validate:"min=10,dive"`

	PatternSummary PatternSummary `json:"pattern_summary"`
	ActionSummary  ActionSummary  `json:"action_summary"`

	QuoteCheck *QuoteCheck `json:"quote_check,omitempty"`
}

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "null" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}
