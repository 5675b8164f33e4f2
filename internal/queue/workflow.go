// Package queue runs research jobs durably on Temporal, one workflow per
// tenant at a time.
package queue

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/aaryan23/cold-email-os/internal/config"
	"github.com/aaryan23/cold-email-os/internal/model"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 5 * time.Second
	defaultJobTimeout     = 45 * time.Minute
	backoffCoefficient    = 2.0
	recordOutcomeTimeout  = time.Minute
)

// Policy is the retry and timeout policy for one research job.
type Policy struct {
	MaxAttempts    int32         `json:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	Timeout        time.Duration `json:"timeout"`
}

// PolicyFromConfig builds a Policy from queue config, filling defaults.
func PolicyFromConfig(cfg config.QueueConfig) Policy {
	p := Policy{
		MaxAttempts:    int32(cfg.MaxAttempts),
		InitialBackoff: time.Duration(cfg.InitialBackoffSecs) * time.Second,
		Timeout:        time.Duration(cfg.JobTimeoutMins) * time.Minute,
	}
	return p.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.Timeout <= 0 {
		p.Timeout = defaultJobTimeout
	}
	return p
}

// ResearchInput is the workflow argument.
type ResearchInput struct {
	Job    model.ResearchJob `json:"job"`
	Policy Policy            `json:"policy"`
}

// Outcome is the final result of a research job.
type Outcome struct {
	Succeeded bool   `json:"succeeded"`
	Attempts  int32  `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResearchWorkflow runs the research activity under the job's retry policy,
// then records the outcome whether or not the job succeeded.
func ResearchWorkflow(ctx workflow.Context, in ResearchInput) error {
	policy := in.Policy.withDefaults()
	var a *Activities

	runCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: policy.Timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    policy.InitialBackoff,
			BackoffCoefficient: backoffCoefficient,
			MaximumAttempts:    policy.MaxAttempts,
		},
	})
	runErr := workflow.ExecuteActivity(runCtx, a.RunResearch, in.Job).Get(runCtx, nil)

	outcome := Outcome{Succeeded: runErr == nil}
	if runErr != nil {
		outcome.Attempts = policy.MaxAttempts
		outcome.Error = causeMessage(runErr)
	}

	recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: recordOutcomeTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 5},
	})
	if err := workflow.ExecuteActivity(recordCtx, a.RecordOutcome, in.Job, outcome).Get(recordCtx, nil); err != nil {
		workflow.GetLogger(ctx).Error("queue: record outcome failed", "report_id", in.Job.ReportID, "error", err)
	}
	return runErr
}

// causeMessage strips Temporal's activity wrapper from err.
func causeMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
