// Package kb splits knowledge-base text into retrieval chunks and ingests
// documents from markdown, spreadsheets, Notion and raw text.
package kb

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minParagraphRunes = 30
	softChunkRunes    = 300
	hardParagraphCap  = 1500
	sentenceTarget    = 1200
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Chunk splits text into chunks. Paragraphs are merged while the running
// chunk stays under the soft size; a paragraph over the hard cap is split at
// sentence ends. Output depends only on the input.
func Chunk(text string) []string {
	var chunks []string
	current := ""

	for _, raw := range paragraphBreak.Split(text, -1) {
		para := strings.TrimSpace(raw)
		if runeLen(para) <= minParagraphRunes {
			continue
		}

		if runeLen(current)+runeLen(para) < softChunkRunes {
			if current != "" {
				current += "\n\n"
			}
			current += para
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
		}
		current = ""
		if runeLen(para) > hardParagraphCap {
			chunks = append(chunks, splitSentences(para)...)
			continue
		}
		current = para
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitSentences groups the sentences of para into pieces of about
// sentenceTarget runes.
func splitSentences(para string) []string {
	var out []string
	sub := ""
	for _, s := range sentences(para) {
		if runeLen(sub)+runeLen(s) > sentenceTarget {
			if sub != "" {
				out = append(out, strings.TrimSpace(sub))
			}
			sub = s
			continue
		}
		if sub != "" {
			sub += " "
		}
		sub += s
	}
	if sub != "" {
		out = append(out, strings.TrimSpace(sub))
	}
	return out
}

// sentences splits s after '.', '!' or '?' when followed by whitespace.
func sentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
