package research

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// ErrTranscriptTooShort is returned when a transcript is below
// model.MinTranscriptLength characters.
var ErrTranscriptTooShort = fmt.Errorf("research: transcript must be at least %d characters", model.MinTranscriptLength)

// Enqueuer hands a research job to the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.ResearchJob) error
}

// ReportStore is the persistence Service needs.
type ReportStore interface {
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	CreatePendingReport(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error)
	FailReport(ctx context.Context, reportID, msg string) error
}

// Service accepts research requests.
type Service struct {
	store ReportStore
	queue Enqueuer
}

// NewService creates a Service.
func NewService(st ReportStore, q Enqueuer) *Service {
	return &Service{store: st, queue: q}
}

// RequestResearch creates a pending report for tenantID and queues the job
// that will fill it in.
func (s *Service) RequestResearch(ctx context.Context, tenantID, transcript, websiteURL string) (*model.ResearchReport, error) {
	transcript = strings.TrimSpace(transcript)
	if utf8.RuneCountInString(transcript) < model.MinTranscriptLength {
		return nil, ErrTranscriptTooShort
	}
	if _, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return nil, eris.Wrapf(err, "research: get tenant %s", tenantID)
	}

	report, err := s.store.CreatePendingReport(ctx, tenantID, transcript, websiteURL)
	if err != nil {
		return nil, eris.Wrap(err, "research: create pending report")
	}

	job := model.ResearchJob{
		TenantID:       tenantID,
		TranscriptText: transcript,
		ReportID:       report.ID,
		WebsiteURL:     websiteURL,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if failErr := s.store.FailReport(ctx, report.ID, err.Error()); failErr != nil {
			zap.L().Warn("research: failed to mark report failed", zap.String("report_id", report.ID), zap.Error(failErr))
		}
		return nil, eris.Wrap(err, "research: enqueue job")
	}

	zap.L().Info("research: job queued", zap.String("tenant_id", tenantID), zap.String("report_id", report.ID))
	return report, nil
}
