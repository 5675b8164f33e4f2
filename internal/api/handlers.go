package api

import (
	"net/http"

	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/rag"
)

type createTenantRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ONBOARDED RESEARCH_READY READY_TO_GENERATE LIVE"`
}

type researchRequest struct {
	TranscriptText string `json:"transcript_text" validate:"required"`
	WebsiteURL     string `json:"website_url" validate:"omitempty,url"`
}

type ingestRequest struct {
	Title          string `json:"title"`
	Text           string `json:"text" validate:"required"`
	DocType        string `json:"doc_type"`
	Vertical       string `json:"vertical"`
	OfferType      string `json:"offer_type"`
	FunnelStage    string `json:"funnel_stage"`
	Tone           string `json:"tone"`
	PerformanceTag string `json:"performance_tag" validate:"omitempty,oneof=winner average loser unknown"`
}

type retrieveRequest struct {
	Query       string `json:"query" validate:"required"`
	Vertical    string `json:"vertical"`
	OfferType   string `json:"offer_type"`
	FunnelStage string `json:"funnel_stage"`
	TopK        int    `json:"top_k" validate:"omitempty,min=5,max=30"`
}

type generateRequest struct {
	Persona        string `json:"persona" validate:"required"`
	Vertical       string `json:"vertical" validate:"required"`
	SequenceLength int    `json:"sequence_length" validate:"omitempty,min=2,max=6"`
}

type retrievedChunk struct {
	ID       string              `json:"id"`
	DocTitle string              `json:"doc_title"`
	DocType  string              `json:"doc_type"`
	Text     string              `json:"text"`
	Metadata model.ChunkMetadata `json:"metadata"`
	Score    float64             `json:"score"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.deps.Store.CreateTenant(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.deps.Store.ListTenants(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tenants == nil {
		tenants = []model.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tenantFrom(r))
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r)
	if err := s.deps.Store.DeleteTenant(r.Context(), t.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	t := tenantFrom(r)
	status := model.TenantStatus(req.Status)
	if err := s.deps.Store.UpdateTenantStatus(r.Context(), t.ID, status); err != nil {
		writeError(w, err)
		return
	}
	updated := *t
	updated.Status = status
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleRequestResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := s.deps.Research.RequestResearch(r.Context(), tenantFrom(r).ID, req.TranscriptText, req.WebsiteURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"report_id": report.ID,
		"status":    string(report.Status),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Store.GetActiveReport(r.Context(), tenantFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active report"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc := model.KBDocument{
		TenantID: tenantFrom(r).ID,
		Title:    req.Title,
		DocType:  req.DocType,
		Metadata: model.ChunkMetadata{
			Vertical:       req.Vertical,
			OfferType:      req.OfferType,
			FunnelStage:    req.FunnelStage,
			Tone:           req.Tone,
			PerformanceTag: model.PerformanceTag(req.PerformanceTag),
		},
	}
	res, err := s.deps.KB.IngestText(r.Context(), doc, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document": res.Document,
		"chunks":   res.Chunks,
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	scored, err := s.deps.Retriever.Retrieve(r.Context(), tenantFrom(r).ID, rag.Query{
		Text:        req.Query,
		Vertical:    req.Vertical,
		OfferType:   req.OfferType,
		FunnelStage: req.FunnelStage,
		TopK:        req.TopK,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]retrievedChunk, len(scored))
	for i, c := range scored {
		out[i] = retrievedChunk{
			ID:       c.ID,
			DocTitle: c.DocTitle,
			DocType:  c.DocType,
			Text:     c.Text,
			Metadata: c.Metadata,
			Score:    c.Score,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": out})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	gen, err := s.deps.Generator.Generate(r.Context(), generation.Request{
		TenantID:       tenantFrom(r).ID,
		Persona:        req.Persona,
		Vertical:       req.Vertical,
		SequenceLength: req.SequenceLength,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gen)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	gens, err := s.deps.Store.ListGenerations(r.Context(), tenantFrom(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if gens == nil {
		gens = []model.Generation{}
	}
	writeJSON(w, http.StatusOK, gens)
}
