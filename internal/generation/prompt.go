package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aaryan23/cold-email-os/internal/rag"
	"github.com/aaryan23/cold-email-os/internal/research"
)

const (
	maxToolkitTerms   = 12
	maxDNAQuotes      = 8
	maxQuoteLen       = 200
	maxHeadlines      = 6
	maxPositioningImp = 3
)

var executiveTitle = regexp.MustCompile(`(?i)\b(ceo|cto|cfo|coo|vp|vice president|chief|director|founder|owner|partner|president)\b`)

// PersonaLevel is the seniority band a persona is written for.
type PersonaLevel string

const (
	PersonaExecutive   PersonaLevel = "executive"
	PersonaOperational PersonaLevel = "operational"
)

// LevelFor classifies a persona title.
func LevelFor(persona string) PersonaLevel {
	if executiveTitle.MatchString(persona) {
		return PersonaExecutive
	}
	return PersonaOperational
}

const systemPrompt = `You are a B2B cold email strategist. Every email you write must read as if it could only have been sent to this one reader.

RULES
1. 50-90 words per email body. Plain text, no bullet points, no links.
2. One soft question as the call to action. Never ask for a meeting slot.
3. Talk about the reader's world before the offer.
4. Social proof carries a real number.
5. Subject lines are 2-4 words, all lowercase.
6. Never open with pleasantries such as "hope you're well" or "I wanted to reach out".
7. Avoid filler vocabulary: leverage, synergy, streamline, game-changing, seamless, robust, circling back.
8. Each follow-up brings a new angle and never repeats email 1.

%s

SEQUENCE SHAPE
Email 1 (day 0) earns the reply. Email 2 (day 3, same thread) adds a resource or case study and is shorter.
Later emails start a fresh subject line, use a new structure and end with a routing question.

Return valid JSON only. No markdown. No explanation. No code fences.
{
  "angles": [
    {
      "angle_name": "short memorable name",
      "angle_summary": "1-2 sentences on the structure used and why it fits this ICP",
      "sequence": [{"step": 1, "subject": "two to four words", "body": "the email body"}]
    }
  ]
}`

const executiveRules = `READER LEVEL: executive (VP, C-level, director, founder).
Keep email 1 to 2-3 sentences. Speak in revenue, risk and competitive position. Never describe daily workflow.`

const operationalRules = `READER LEVEL: operational (manager, individual contributor).
3-4 sentences are fine. Name the specific task that wastes their week and quantify the time saved.`

// buildPrompt assembles the system and user prompts for one generation.
func buildPrompt(reportText string, dna *research.CustomerDNA, chunks []rag.Scored, req Request) (string, string) {
	level := LevelFor(req.Persona)
	rules := operationalRules
	if level == PersonaExecutive {
		rules = executiveRules
	}
	system := fmt.Sprintf(systemPrompt, rules)

	kb := KBContext(chunks)
	if kb == "" {
		kb = "(No knowledge base context. Rely on the research report.)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RESEARCH REPORT\n%s\n\n", reportText)
	if extract := DNAExtract(dna); extract != "" {
		fmt.Fprintf(&b, "%s\n\n", extract)
	}
	fmt.Fprintf(&b, "KNOWLEDGE BASE\n%s\n\n", kb)
	fmt.Fprintf(&b, "CAMPAIGN BRIEF\nTarget Persona: %s\nVertical: %s\nSequence Length: %d emails per angle\nPersona Level: %s\n\n",
		req.Persona, req.Vertical, req.SequenceLength, level)
	fmt.Fprintf(&b, `Write 3 distinct campaign angles, each a %d-email sequence for %q in %q.
Angle 1 quantifies the cost of doing nothing with a back-of-napkin calculation.
Angle 2 names the problem companies like theirs share and how a peer solved it.
Angle 3 opens with a genuine question that surfaces the pain, then keeps the pitch to one sentence.
Use the customer's own phrases from the research wherever they fit.`, req.SequenceLength, req.Persona, req.Vertical)

	return system, b.String()
}

// KBContext renders retrieved chunks as numbered context blocks.
func KBContext(chunks []rag.Scored) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[KB-%d] (%s)\n%s", i+1, c.DocTitle, c.Text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// DNAExtract renders the parts of the customer DNA report that feed copy.
func DNAExtract(dna *research.CustomerDNA) string {
	if dna == nil {
		return ""
	}
	lines := []string{"CUSTOMER DNA: USE THEIR EXACT LANGUAGE"}

	if len(dna.LanguageToolkit) > 0 {
		lines = append(lines, "\nPHRASES THE ICP USES:")
		for _, t := range head(dna.LanguageToolkit, maxToolkitTerms) {
			lines = append(lines, fmt.Sprintf("  - %q: %s", t.Term, t.Why))
		}
	}
	if len(dna.Quotes) > 0 {
		lines = append(lines, "\nREAL QUOTES:")
		for i, q := range head(dna.Quotes, maxDNAQuotes) {
			lines = append(lines, fmt.Sprintf("  Q%d [%s]: %q", i+1, q.PrimaryEmotion, clip(q.Quote, maxQuoteLen)))
		}
	}
	if len(dna.Headlines) > 0 {
		lines = append(lines, "\nHEADLINES THAT RESONATE:")
		for i, h := range head(dna.Headlines, maxHeadlines) {
			lines = append(lines, fmt.Sprintf("  H%d: %q [%s]", i+1, h.Headline, h.Annotation))
		}
	}

	hooks := []struct{ label, hook string }{
		{"LOSS", dna.Hooks.Loss.Hook},
		{"ASPIRATION", dna.Hooks.Aspiration.Hook},
		{"PATTERN-INTERRUPT", dna.Hooks.PatternInterrupt.Hook},
		{"IDENTITY", dna.Hooks.Identity.Hook},
	}
	var hookLines []string
	for _, h := range hooks {
		if h.hook != "" {
			hookLines = append(hookLines, fmt.Sprintf("  %s: %s", h.label, h.hook))
		}
	}
	if len(hookLines) > 0 {
		lines = append(lines, "\nOPENING HOOKS:")
		lines = append(lines, hookLines...)
	}

	if dna.PositioningAngle != "" {
		lines = append(lines, "\nPOSITIONING ANGLE: "+dna.PositioningAngle)
	}
	if dna.ActionSummary.BiggestOpportunity != "" {
		lines = append(lines, "\nBIGGEST OPPORTUNITY: "+dna.ActionSummary.BiggestOpportunity)
	}
	if imps := dna.ActionSummary.PositioningImplications; len(imps) > 0 {
		lines = append(lines, "\nMESSAGING TO EMPHASISE:")
		for _, p := range head(imps, maxPositioningImp) {
			lines = append(lines, "  - "+p)
		}
	}
	return strings.Join(lines, "\n")
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
