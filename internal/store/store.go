// Package store persists tenants, research reports, the knowledge base and
// generations. Postgres is the production driver; SQLite serves local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store defines the persistence interface for the research and generation
// pipeline.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, name string) (*model.Tenant, error)
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	UpdateTenantStatus(ctx context.Context, id string, status model.TenantStatus) error
	// DeleteTenant removes the tenant with its reports, generations and
	// tenant-owned knowledge base documents. Global documents are kept.
	DeleteTenant(ctx context.Context, id string) error

	// Research reports
	CreatePendingReport(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error)
	GetReport(ctx context.Context, id string) (*model.ResearchReport, error)
	// GetActiveReport returns nil, nil when the tenant has no active report.
	GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error)
	// PublishReport deactivates the tenant's active report, activates
	// reportID with the given content and advances the tenant to
	// RESEARCH_READY, all in one transaction.
	PublishReport(ctx context.Context, tenantID, reportID string, reportJSON []byte, reportText string) error
	FailReport(ctx context.Context, reportID, msg string) error

	// Knowledge base
	CreateDocument(ctx context.Context, doc model.KBDocument, chunks []string) (*model.KBDocument, error)
	// FindDocument returns nil, nil when no document matches.
	FindDocument(ctx context.Context, title, sourceType string) (*model.KBDocument, error)
	// ListVisibleChunks returns global chunks plus those owned by tenantID.
	ListVisibleChunks(ctx context.Context, tenantID string) ([]model.KBChunk, error)

	// Generations
	// RecordGeneration appends g and advances the tenant to
	// READY_TO_GENERATE in one transaction.
	RecordGeneration(ctx context.Context, g *model.Generation) error
	ListGenerations(ctx context.Context, tenantID string) ([]model.Generation, error)

	// Search and fetch cache
	GetCached(ctx context.Context, key string) ([]byte, error)
	SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteExpiredCache(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
