package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/kb"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/rag"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateTenant(ctx context.Context, name string) (*model.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *mockStore) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *mockStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tenant), args.Error(1)
}

func (m *mockStore) UpdateTenantStatus(ctx context.Context, id string, status model.TenantStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) DeleteTenant(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResearchReport), args.Error(1)
}

func (m *mockStore) ListGenerations(ctx context.Context, tenantID string) ([]model.Generation, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Generation), args.Error(1)
}

type mockResearch struct {
	mock.Mock
}

func (m *mockResearch) RequestResearch(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error) {
	args := m.Called(ctx, tenantID, transcript, websiteURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResearchReport), args.Error(1)
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) IngestText(ctx context.Context, doc model.KBDocument, text string) (*kb.IngestResult, error) {
	args := m.Called(ctx, doc, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kb.IngestResult), args.Error(1)
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

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req generation.Request) (*model.Generation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Generation), args.Error(1)
}

type harness struct {
	store     *mockStore
	research  *mockResearch
	kb        *mockIngester
	retriever *mockRetriever
	generator *mockGenerator
	server    *Server
}

func newHarness() *harness {
	h := &harness{
		store:     &mockStore{},
		research:  &mockResearch{},
		kb:        &mockIngester{},
		retriever: &mockRetriever{},
		generator: &mockGenerator{},
	}
	h.server = NewServer(Deps{
		Store:     h.store,
		Research:  h.research,
		KB:        h.kb,
		Retriever: h.retriever,
		Generator: h.generator,
	})
	return h
}

func (h *harness) withTenant(id string) *model.Tenant {
	t := &model.Tenant{ID: id, Name: "Acme", Status: model.TenantOnboarded}
	h.store.On("GetTenant", mock.Anything, id).Return(t, nil)
	return t
}
