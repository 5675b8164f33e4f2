package generation

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/rag"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResearchReport), args.Error(1)
}

func (m *mockStore) RecordGeneration(ctx context.Context, g *model.Generation) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, tenantID string, q rag.Query) ([]rag.Scored, error) {
	args := m.Called(ctx, tenantID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rag.Scored), args.Error(1)
}

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

const campaignJSON = `{
  "angles": [
    {"angle_name": "cost of waiting", "angle_summary": "math first", "sequence": [
      {"step": 1, "subject": "quick math", "body": "body one"},
      {"step": 2, "subject": "re: quick math", "body": "body two"}
    ]},
    {"angle_name": "peer story", "angle_summary": "social proof", "sequence": [
      {"step": 1, "subject": "teams like yours", "body": "body"}
    ]}
  ]
}`

func activeReport() *model.ResearchReport {
	return &model.ResearchReport{
		ID:         "rep-1",
		TenantID:   "t1",
		ReportText: "CLIENT: Acme\nOFFER: outbound",
		ReportJSON: json.RawMessage(`{"customer_dna": {"positioning_angle": "own the pipeline", "language_toolkit": [{"term": "dead leads", "why": "used constantly"}]}}`),
		IsActive:   true,
		Status:     model.ReportCompleted,
	}
}

func scoredChunk(id, title, text string) rag.Scored {
	return rag.Scored{KBChunk: model.KBChunk{ID: id, DocTitle: title, Text: text}, Score: 1}
}
