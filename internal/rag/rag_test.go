package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aaryan23/cold-email-os/internal/model"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) ListVisibleChunks(ctx context.Context, tenantID string) ([]model.KBChunk, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.KBChunk), args.Error(1)
}

func chunk(id, docID, tenantID, docType, text string) model.KBChunk {
	return model.KBChunk{
		ID:         id,
		DocumentID: docID,
		TenantID:   tenantID,
		DocType:    docType,
		Text:       text,
		Metadata:   model.ChunkMetadata{}.WithDefaults(),
	}
}

// scenarioCorpus builds 6 global playbook chunks (5 overlapping the query,
// 1 not) and 20 tenant chunks spread over 8 documents.
func scenarioCorpus() []model.KBChunk {
	var chunks []model.KBChunk
	playbook := []string{
		"cold email subject lines that convert",
		"cold email follow up cadence",
		"email personalization at scale",
		"subject lines for agencies",
		"writing cold openers",
		"quarterly tax filing reminders",
	}
	for i, text := range playbook {
		chunks = append(chunks, chunk(fmt.Sprintf("pb-%d", i), fmt.Sprintf("pbdoc-%d", i), "", model.DocTypePlaybook, text))
	}
	for i := range 20 {
		doc := fmt.Sprintf("doc-%d", i%8)
		chunks = append(chunks, chunk(fmt.Sprintf("t-%d", i), doc, "tenant-1", model.DocTypeCampaign,
			fmt.Sprintf("cold email campaign variant %d for agencies", i)))
	}
	return chunks
}

func TestSelect_RetrievalScenario(t *testing.T) {
	got := Select(scenarioCorpus(), Query{Text: "cold email subject lines", TopK: 15})

	require.Len(t, got, 15)
	for i := range CanonicalCount {
		assert.True(t, got[i].IsCanonical(), "position %d", i)
		assert.NotEqual(t, "pb-5", got[i].ID, "zero-scoring playbook chunk ranks sixth")
	}

	perDoc := map[string]int{}
	for _, s := range got[CanonicalCount:] {
		assert.False(t, s.IsCanonical())
		perDoc[s.DocumentID]++
	}
	for doc, n := range perDoc {
		assert.LessOrEqual(t, n, MaxPerDocument, doc)
	}
}

func TestSelect_Monotonic(t *testing.T) {
	corpus := scenarioCorpus()
	var prev []Scored
	for k := MinTopK; k <= MaxTopK; k++ {
		cur := Select(corpus, Query{Text: "cold email agencies", TopK: k})
		require.GreaterOrEqual(t, len(cur), len(prev))
		for i := range prev {
			assert.Equal(t, prev[i].ID, cur[i].ID, "top_k=%d position %d", k, i)
		}
		prev = cur
	}
}

func TestSelect_TopKFive(t *testing.T) {
	got := Select(scenarioCorpus(), Query{Text: "cold email", TopK: 5})
	require.Len(t, got, 5)
	for _, s := range got {
		assert.True(t, s.IsCanonical())
	}
}

func TestSelect_FewCanonicalFillsFromOthers(t *testing.T) {
	corpus := []model.KBChunk{
		chunk("pb", "pbdoc", "", model.DocTypePlaybook, "playbook"),
		chunk("a1", "a", "t", model.DocTypeCampaign, "alpha"),
		chunk("a2", "a", "t", model.DocTypeCampaign, "alpha"),
		chunk("a3", "a", "t", model.DocTypeCampaign, "alpha"),
		chunk("b1", "b", "t", model.DocTypeCampaign, "beta"),
	}
	got := Select(corpus, Query{Text: "alpha", TopK: 5})
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"pb", "a1", "a2", "b1"}, ids)
}

func TestSelect_DedupesByID(t *testing.T) {
	c := chunk("same", "d", "t", model.DocTypeCampaign, "alpha")
	got := Select([]model.KBChunk{c, c}, Query{Text: "alpha"})
	assert.Len(t, got, 1)
}

func TestSelect_GlobalNonPlaybookIsOther(t *testing.T) {
	guide := chunk("g", "gdoc", "", model.DocTypeGuide, "alpha")
	tenantPlaybook := chunk("tp", "tdoc", "t", model.DocTypePlaybook, "alpha")
	assert.False(t, guide.IsCanonical())
	assert.False(t, tenantPlaybook.IsCanonical())
	assert.Len(t, Select([]model.KBChunk{guide, tenantPlaybook}, Query{Text: "alpha"}), 2)
}

func TestSelect_FacetFilters(t *testing.T) {
	pb := chunk("pb", "pbdoc", "", model.DocTypePlaybook, "alpha")
	pb.Metadata.OfferType = "saas"

	match := chunk("m", "d1", "t", model.DocTypeCampaign, "alpha")
	match.Metadata.OfferType = "agency"
	wildcard := chunk("w", "d2", "t", model.DocTypeCampaign, "alpha")
	miss := chunk("x", "d3", "t", model.DocTypeCampaign, "alpha")
	miss.Metadata.OfferType = "saas"
	stage := chunk("s", "d4", "t", model.DocTypeCampaign, "alpha")
	stage.Metadata.OfferType = "agency"
	stage.Metadata.FunnelStage = "decision"

	got := Select([]model.KBChunk{pb, match, wildcard, miss, stage}, Query{Text: "alpha", OfferType: "agency", FunnelStage: "awareness"})
	ids := map[string]bool{}
	for _, s := range got {
		ids[s.ID] = true
	}
	assert.Equal(t, map[string]bool{"pb": true, "m": true, "w": true}, ids, "canonical chunks are never filtered")
}

func TestScore(t *testing.T) {
	q := Tokenize("cold email agencies")

	none := chunk("1", "d", "t", model.DocTypeCampaign, "quarterly tax filing")
	assert.Equal(t, 0.0, Score(q, none, ""))

	half := chunk("2", "d", "t", model.DocTypeCampaign, "cold outreach for agencies")
	assert.InDelta(t, 2.0/3.0, Score(q, half, ""), 1e-9)

	winner, loser := half, half
	winner.Metadata.PerformanceTag = model.PerformanceWinner
	loser.Metadata.PerformanceTag = model.PerformanceLoser
	assert.InDelta(t, 1.0, Score(q, winner, ""), 1e-9)
	assert.InDelta(t, 1.0/3.0, Score(q, loser, ""), 1e-9)
	assert.Greater(t, Score(q, winner, ""), Score(q, loser, ""))

	vertical := none
	vertical.Metadata.Vertical = "saas"
	assert.InDelta(t, 0.2, Score(q, vertical, "saas"), 1e-9)
	assert.Equal(t, 0.0, Score(q, vertical, "fintech"))

	wild := none
	assert.Equal(t, 0.0, Score(q, wild, model.Wildcard), "wildcard vertical earns no bonus")

	assert.Equal(t, 0.0, Score(Tokenize("a an to"), half, ""), "query without tokens scores zero")
}

func TestClampTopK(t *testing.T) {
	tests := map[int]int{0: 15, 1: 5, 5: 5, 12: 12, 30: 30, 99: 30, -3: 5}
	for in, want := range tests {
		assert.Equal(t, want, ClampTopK(in), "in=%d", in)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Café-owners DON'T scale; B2B is 10x, ok?")
	want := map[string]struct{}{"cafe": {}, "owners": {}, "don": {}, "scale": {}, "b2b": {}, "10x": {}}
	assert.Equal(t, want, got)
	assert.Empty(t, Tokenize(""))
}

func TestEngine_Retrieve(t *testing.T) {
	loader := new(mockLoader)
	loader.On("ListVisibleChunks", mock.Anything, "tenant-1").Return(scenarioCorpus(), nil)

	got, err := NewEngine(loader).Retrieve(context.Background(), "tenant-1", Query{Text: "cold email"})
	require.NoError(t, err)
	assert.Len(t, got, DefaultTopK)
	loader.AssertExpectations(t)
}

func TestEngine_RetrieveError(t *testing.T) {
	loader := new(mockLoader)
	loader.On("ListVisibleChunks", mock.Anything, "tenant-1").Return(nil, errors.New("db down"))

	_, err := NewEngine(loader).Retrieve(context.Background(), "tenant-1", Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rag: list chunks")
}
