// Package rag selects knowledge-base chunks for prompt injection.
package rag

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
)

const (
	// CanonicalCount is how many playbook chunks every result starts with.
	CanonicalCount = 5
	// MaxPerDocument caps non-canonical chunks taken from one document.
	MaxPerDocument = 2

	DefaultTopK = 15
	MinTopK     = 5
	MaxTopK     = 30

	verticalBonus = 0.2
)

// Query describes what to retrieve.
type Query struct {
	Text     string
	Vertical string
	// OfferType and FunnelStage narrow non-canonical chunks when set.
	OfferType   string
	FunnelStage string
	TopK        int
}

// Scored is a chunk with its retrieval score.
type Scored struct {
	model.KBChunk
	Score float64 `json:"score"`
}

// ChunkLoader lists the chunks visible to a tenant.
type ChunkLoader interface {
	ListVisibleChunks(ctx context.Context, tenantID string) ([]model.KBChunk, error)
}

// Engine retrieves chunks for a tenant.
type Engine struct {
	chunks ChunkLoader
}

// NewEngine creates an Engine.
func NewEngine(l ChunkLoader) *Engine {
	return &Engine{chunks: l}
}

// Retrieve loads the tenant's visible chunks and selects from them.
func (e *Engine) Retrieve(ctx context.Context, tenantID string, q Query) ([]Scored, error) {
	chunks, err := e.chunks.ListVisibleChunks(ctx, tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "rag: list chunks")
	}
	out := Select(chunks, q)
	zap.L().Debug("rag: retrieved chunks",
		zap.String("tenant_id", tenantID),
		zap.Int("corpus", len(chunks)),
		zap.Int("selected", len(out)),
	)
	return out, nil
}

// ClampTopK maps a requested size into [MinTopK, MaxTopK]; zero means
// DefaultTopK.
func ClampTopK(k int) int {
	switch {
	case k == 0:
		return DefaultTopK
	case k < MinTopK:
		return MinTopK
	case k > MaxTopK:
		return MaxTopK
	}
	return k
}

// Multiplier is the score weight for a performance tag.
func Multiplier(tag model.PerformanceTag) float64 {
	switch tag {
	case model.PerformanceWinner:
		return 1.5
	case model.PerformanceLoser:
		return 0.5
	}
	return 1.0
}

// Score rates one chunk against the query tokens.
func Score(queryTokens map[string]struct{}, c model.KBChunk, vertical string) float64 {
	var base float64
	if len(queryTokens) > 0 {
		chunkTokens := Tokenize(c.Text)
		hits := 0
		for tok := range queryTokens {
			if _, ok := chunkTokens[tok]; ok {
				hits++
			}
		}
		base = float64(hits) / float64(len(queryTokens))
	}

	score := base * Multiplier(c.Metadata.PerformanceTag)
	if vertical != "" && vertical != model.Wildcard && c.Metadata.Vertical == vertical {
		score += verticalBonus
	}
	return score
}

// Select ranks chunks for q: the top canonical playbook chunks first, then
// the best remaining chunks with at most MaxPerDocument per document, up to
// q.TopK in total.
func Select(chunks []model.KBChunk, q Query) []Scored {
	topK := ClampTopK(q.TopK)
	queryTokens := Tokenize(q.Text)

	var canonical, others []Scored
	for _, c := range chunks {
		s := Scored{KBChunk: c, Score: Score(queryTokens, c, q.Vertical)}
		if c.IsCanonical() {
			canonical = append(canonical, s)
			continue
		}
		if matchesFacet(c.Metadata.OfferType, q.OfferType) && matchesFacet(c.Metadata.FunnelStage, q.FunnelStage) {
			others = append(others, s)
		}
	}
	byScore := func(s []Scored) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
	}
	byScore(canonical)
	byScore(others)

	if len(canonical) > CanonicalCount {
		canonical = canonical[:CanonicalCount]
	}
	if len(canonical) > topK {
		canonical = canonical[:topK]
	}

	seen := make(map[string]bool, topK)
	out := make([]Scored, 0, topK)
	for _, s := range canonical {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	perDoc := make(map[string]int)
	for _, s := range others {
		if len(out) >= topK {
			break
		}
		if seen[s.ID] || perDoc[s.DocumentID] >= MaxPerDocument {
			continue
		}
		seen[s.ID] = true
		perDoc[s.DocumentID]++
		out = append(out, s)
	}
	return out
}

func matchesFacet(value, filter string) bool {
	return filter == "" || filter == model.Wildcard || value == filter || value == model.Wildcard
}
