package research

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/aaryan23/cold-email-os/internal/llm"
)

const (
	maxSiteContent      = 8000
	maxTranscriptPrompt = 12000
	minSiteContent      = 50
	transcriptMaxTokens = 2048
	stageTranscript     = "transcript"
)

const transcriptSystem = `You are an expert B2B market researcher. Extract structured information from onboarding call transcripts.
Return valid JSON only. No markdown. No explanation. No code fences.`

// BuildContext prepends fetched website content to the transcript when
// there is enough of it to be useful.
func BuildContext(transcript, websiteURL, siteContent string) string {
	if websiteURL == "" || len(siteContent) <= minSiteContent {
		return transcript
	}
	return fmt.Sprintf("WEBSITE CONTENT (%s):\n%s\n\n---\n\nONBOARDING TRANSCRIPT:\n%s",
		websiteURL, truncate(siteContent, maxSiteContent), transcript)
}

// ParseTranscript extracts TranscriptInsights from the analysis context.
func ParseTranscript(ctx context.Context, gw llm.Gateway, analysisContext string) (*TranscriptInsights, error) {
	raw, err := gw.CompleteJSON(ctx, llm.Request{
		Phase:     stageTranscript,
		System:    transcriptSystem,
		User:      transcriptPrompt(analysisContext),
		MaxTokens: transcriptMaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: parse transcript")
	}
	return decodeStrict[TranscriptInsights](stageTranscript, raw)
}

func transcriptPrompt(analysisContext string) string {
	return `Analyze this onboarding call transcript and extract the following in JSON format:

{
  "client_name": "Company or person name (fallback: 'UNABLE_TO_IDENTIFY')",
  "client_offer": "One sentence: '[Company] helps [Target Market] achieve [Benefit] by providing [Mechanism]'",
  "icp_summary": "3-4 sentences describing the ideal customer and their pain in the client's own language",
  "painful_problem": "1-2 sentences on the #1 specific, daily, tangible form of their biggest problem",
  "search_keywords": ["exactly 15 broad search keywords, lowercase, 2-5 words each"],
  "competitor_queries": ["exactly 5 commercial-intent queries like 'best [service] for [market]'"]
}

TRANSCRIPT:
` + truncate(analysisContext, maxTranscriptPrompt)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
