// Package api exposes tenants, research, the knowledge base, retrieval and
// campaign generation over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/kb"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/rag"
)

// Store is the persistence the handlers read and write directly.
type Store interface {
	CreateTenant(ctx context.Context, name string) (*model.Tenant, error)
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	UpdateTenantStatus(ctx context.Context, id string, status model.TenantStatus) error
	DeleteTenant(ctx context.Context, id string) error
	GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error)
	ListGenerations(ctx context.Context, tenantID string) ([]model.Generation, error)
}

// ResearchRequester accepts research jobs.
type ResearchRequester interface {
	RequestResearch(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error)
}

// TextIngester writes knowledge-base documents.
type TextIngester interface {
	IngestText(ctx context.Context, doc model.KBDocument, text string) (*kb.IngestResult, error)
}

// Retriever selects knowledge-base chunks.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID string, q rag.Query) ([]rag.Scored, error)
}

// CampaignGenerator writes campaigns.
type CampaignGenerator interface {
	Generate(ctx context.Context, req generation.Request) (*model.Generation, error)
}

// Deps wires the server to its collaborators.
type Deps struct {
	Store          Store
	Research       ResearchRequester
	KB             TextIngester
	Retriever      Retriever
	Generator      CampaignGenerator
	AllowedOrigins []string
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	router chi.Router
	deps   Deps
}

// NewServer builds a Server with all routes registered.
func NewServer(d Deps) *Server {
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	s := &Server{router: chi.NewRouter(), deps: d}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", s.handleCreateTenant)
		r.Get("/", s.handleListTenants)

		r.Route("/{tenantID}", func(r chi.Router) {
			r.Use(s.tenantCtx)
			r.Get("/", s.handleGetTenant)
			r.Delete("/", s.handleDeleteTenant)
			r.Patch("/status", s.handleUpdateStatus)
			r.Post("/research", s.handleRequestResearch)
			r.Get("/research/report", s.handleGetReport)
			r.Post("/kb", s.handleIngest)
			r.Post("/rag/retrieve", s.handleRetrieve)
			r.Post("/generate", s.handleGenerate)
			r.Get("/generations", s.handleListGenerations)
		})
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type ctxKey struct{}

// tenantCtx loads the tenant named in the path, answering 404 when it does
// not exist.
func (s *Server) tenantCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.deps.Store.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, t)))
	})
}

func tenantFrom(r *http.Request) *model.Tenant {
	t, _ := r.Context().Value(ctxKey{}).(*model.Tenant)
	return t
}
