package queue

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// Runner executes one research job.
type Runner interface {
	Run(ctx context.Context, job model.ResearchJob) error
}

// ReportFailer marks a report failed.
type ReportFailer interface {
	FailReport(ctx context.Context, reportID, msg string) error
}

// Activities are the Temporal activities behind ResearchWorkflow.
type Activities struct {
	Runner  Runner
	Reports ReportFailer
}

// RunResearch runs the research pipeline for job.
func (a *Activities) RunResearch(ctx context.Context, job model.ResearchJob) error {
	return a.Runner.Run(ctx, job)
}

// RecordOutcome logs the job result and marks the report failed when the
// job did not succeed.
func (a *Activities) RecordOutcome(ctx context.Context, job model.ResearchJob, outcome Outcome) error {
	log := zap.L().With(
		zap.String("tenant_id", job.TenantID),
		zap.String("report_id", job.ReportID),
	)
	if outcome.Succeeded {
		log.Info("queue: research job completed")
		return nil
	}

	log.Error("queue: research job failed",
		zap.Int32("attempts", outcome.Attempts),
		zap.String("error", outcome.Error),
	)
	if err := a.Reports.FailReport(ctx, job.ReportID, outcome.Error); err != nil {
		return eris.Wrapf(err, "queue: mark report %s failed", job.ReportID)
	}
	return nil
}
