package research

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/search"
)

const (
	stageDNA = "customer_dna"

	maxDNAPosts     = 50
	maxDNAPostBody  = 500
	maxDNAVideos    = 15
	maxDNAVideoSubs = 1500
	dnaMaxTokens    = 16000

	targetDNAQuotes = 25
	minDNAQuotes    = 10
)

// DNASynthesizer builds the customer DNA report from raw posts and videos.
type DNASynthesizer struct {
	LLM llm.Gateway
	// VerifyQuotes checks every extracted quote against the raw corpus.
	VerifyQuotes bool
}

const dnaSystem = `You are a customer intelligence analyst who works only from evidence.
You write a nine-section customer DNA report from raw community posts and video transcripts.
Every quote you cite must appear verbatim in the corpus you are given. Never invent or paraphrase a quote.
Return valid JSON only. No markdown. No explanation. No code fences.`

// Run executes the customer DNA stage.
func (s *DNASynthesizer) Run(ctx context.Context, ti *TranscriptInsights, posts []search.Post, videos []search.Video) (*CustomerDNA, error) {
	corpus := BuildCorpus(posts, videos)

	raw, err := s.LLM.CompleteJSON(ctx, llm.Request{
		Phase:     stageDNA,
		System:    dnaSystem,
		User:      dnaPrompt(ti, corpus),
		MaxTokens: dnaMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	dna, err := decodeStrict[CustomerDNA](stageDNA, raw)
	if err != nil {
		return nil, err
	}

	if s.VerifyQuotes {
		check := VerifyQuotes(dna, corpus)
		if check.Verified < check.Checked {
			zap.L().Warn("research: customer DNA cites quotes missing from corpus",
				zap.Int("checked", check.Checked),
				zap.Int("verified", check.Verified),
			)
		}
	}

	zap.L().Info("research: customer DNA stage complete",
		zap.Int("posts", min(len(posts), maxDNAPosts)),
		zap.Int("videos", min(len(videos), maxDNAVideos)),
		zap.Int("quotes", len(dna.Quotes)),
	)
	return dna, nil
}

// BuildCorpus renders the numbered raw evidence block the synthesizer reads.
func BuildCorpus(posts []search.Post, videos []search.Video) string {
	var b strings.Builder

	b.WriteString("REDDIT POSTS:\n")
	if len(posts) == 0 {
		b.WriteString("No Reddit data available.\n")
	}
	for i, p := range posts {
		if i >= maxDNAPosts {
			break
		}
		fmt.Fprintf(&b, "[Reddit %d] Title: %s\nBody: %s\n\n", i+1, p.Title, truncate(p.Content(), maxDNAPostBody))
	}

	b.WriteString("\nYOUTUBE VIDEOS:\n")
	if len(videos) == 0 {
		b.WriteString("No YouTube data available.\n")
	}
	for i, v := range videos {
		if i >= maxDNAVideos {
			break
		}
		fmt.Fprintf(&b, "[YouTube %d] Title: %s (%d views)\nContent: %s\n\n", i+1, v.Title, v.ViewCount, truncate(v.Subtitles, maxDNAVideoSubs))
	}
	return b.String()
}

// VerifyQuotes marks each quote verified when its normalised text occurs in
// the normalised corpus, and records the totals on dna.
func VerifyQuotes(dna *CustomerDNA, corpus string) QuoteCheck {
	haystack := normalizeQuote(corpus)
	var check QuoteCheck
	for i := range dna.Quotes {
		needle := normalizeQuote(dna.Quotes[i].Quote)
		ok := needle != "" && strings.Contains(haystack, needle)
		dna.Quotes[i].Verified = &ok
		check.Checked++
		if ok {
			check.Verified++
		}
	}
	dna.QuoteCheck = &check
	return check
}

// normalizeQuote lowercases s, strips surrounding quote marks and collapses
// whitespace runs to one space.
func normalizeQuote(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "\"'“”‘’")
	fields := strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}

func dnaPrompt(ti *TranscriptInsights, corpus string) string {
	return fmt.Sprintf(`TARGET CUSTOMER: %s
#1 PAINFUL PROBLEM: %s
TRANSFORMATION OFFERED: %s

Write a customer DNA report using only the raw corpus below.

Return JSON with exactly these keys:
{
  "target_customer": "...", "core_struggle": "...", "offer": "...",
  "platforms_searched": "which platforms the corpus came from", "quote_yield": "e.g. 22 qualifying quotes from 65 reviewed",
  "daily_reality": "section 1", "internal_narrative": "section 2", "solution_archaeology": "section 3",
  "belief_system": "section 4", "market_intelligence": "section 5",
  "headlines": [{"headline": "...", "annotation": "..."}],
  "hooks": {"loss": {"hook": "...", "annotation": "..."}, "aspiration": {"hook": "...", "annotation": "..."},
            "pattern_interrupt": {"hook": "...", "annotation": "..."}, "identity": {"hook": "...", "annotation": "..."}},
  "objections": [{"objection": "...", "rebuttal": "..."}],
  "positioning_angle": "...",
  "language_toolkit": [{"term": "...", "why": "...", "quotes": ["..."]}],
  "quotes": [{"number": 1, "quote": "verbatim text", "platform": "Reddit or YouTube", "source": "[Reddit 3]",
              "primary_emotion": "...", "belief_signal": "...", "decision_implication": "..."}],
  "pattern_summary": {"most_common_emotion": "...", "recurring_language": "...", "dominant_belief": "...",
                      "key_pattern": "...", "suggested_queries": ["..."]},
  "action_summary": {"product_implications": ["..."], "positioning_implications": ["..."], "gtm_implications": ["..."],
                     "pricing_implications": ["..."], "content_implications": ["..."],
                     "biggest_risk": "...", "biggest_opportunity": "..."}
}

Extract exactly %d of the most psychologically dense verbatim quotes from the corpus. Never fabricate one.
If fewer than %d qualifying quotes exist, use what you have (at least %d) and note the shortfall in quote_yield.
At least 3 headlines, 5 objections, 8 toolkit terms and 3 items per implication list.

RAW CORPUS:
%s
`, ti.ICPSummary, ti.PainfulProblem, ti.ClientOffer, targetDNAQuotes, targetDNAQuotes, minDNAQuotes, corpus)
}
