package research

import (
	"fmt"
	"strings"
)

// Report is the structured research report. Each enrichment section is nil
// when its stage failed.
type Report struct {
	TranscriptInsights
	YouTubeInsights    *VideoInsights      `json:"youtube_insights"`
	RedditSegments     *CommunitySegments  `json:"reddit_segments"`
	CompetitorAnalysis *CompetitorAnalysis `json:"competitor_analysis"`
	CustomerDNA        *CustomerDNA        `json:"customer_dna"`
}

// RenderText flattens r into the plain-text form used in prompts. Output is
// deterministic and nil sections are omitted.
func RenderText(r *Report) string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("CLIENT: %s", r.ClientName)
	add("OFFER: %s", r.ClientOffer)
	add("ICP: %s", r.ICPSummary)
	add("PAINFUL PROBLEM: %s", r.PainfulProblem)

	if yt := r.YouTubeInsights; yt != nil {
		add("\nYOUTUBE INSIGHTS:")
		add("Problems:")
		lines = append(lines, insightLines(yt.Problems)...)
		add("Desires:")
		lines = append(lines, insightLines(yt.Desires)...)
	}

	if rd := r.RedditSegments; rd != nil {
		add("\nREDDIT RESEARCH:")
		add("Overarching Dream: %s", rd.OverarchingDream)
		for _, seg := range rd.Segments {
			add("\nSegment: %s", seg.Name)
			add("Core Driver: %s", seg.CoreDriver)
			add("Problems: %s", strings.Join(seg.Problems, "; "))
			add("Desires: %s", strings.Join(seg.Desires, "; "))
			add("Motivations:")
			lines = append(lines, namedPointLines(seg.Motivations)...)
			add("Tradeoffs:")
			lines = append(lines, namedPointLines(seg.Tradeoffs)...)
		}
	}

	if ca := r.CompetitorAnalysis; ca != nil {
		add("\nCOMPETITOR ANALYSIS:")
		for _, c := range ca.Competitors {
			add("\n%s (%s)", c.Name, c.URL)
			add("Quotes: %s", strings.Join(c.MarketingQuotes, " | "))
			add("Strength: %s", c.PositioningStrength)
			add("Gap: %s", c.StrategicGap)
		}
	}

	if dna := r.CustomerDNA; dna != nil {
		add("\nCUSTOMER DNA INTELLIGENCE:")
		add("Daily Reality: %s", dna.DailyReality)
		add("Internal Narrative: %s", dna.InternalNarrative)
		add("Solution Archaeology: %s", dna.SolutionArchaeology)
		add("Belief System: %s", dna.BeliefSystem)
		add("Market Intelligence: %s", dna.MarketIntelligence)
		add("Positioning Angle: %s", dna.PositioningAngle)
		add("\nHeadlines:")
		for _, h := range dna.Headlines {
			add("  - %s [%s]", h.Headline, h.Annotation)
		}
		add("\nAction Summary:")
		add("Biggest Opportunity: %s", dna.ActionSummary.BiggestOpportunity)
		add("Biggest Risk: %s", dna.ActionSummary.BiggestRisk)
	}

	return strings.Join(lines, "\n")
}

func insightLines(items []InsightItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, fmt.Sprintf("  - %s: %s", it.Name, it.Description))
		for _, sp := range it.SubPoints {
			out = append(out, "    * "+sp)
		}
	}
	return out
}

func namedPointLines(items []NamedPoints) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("  - %s: %s", it.Name, strings.Join(it.Points, " | ")))
	}
	return out
}
