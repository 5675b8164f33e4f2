package queue

import (
	"context"

	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/resilience"
)

// Inline runs research jobs in-process, synchronously, under the same retry
// policy the workflow uses. It backs local runs without a Temporal server.
type Inline struct {
	Activities *Activities
	Policy     Policy
}

// Enqueue runs job to completion and records its outcome. It returns the
// job error after the outcome is recorded.
func (q *Inline) Enqueue(ctx context.Context, job model.ResearchJob) error {
	policy := q.Policy.withDefaults()
	var attempts int32
	runErr := resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts:    int(policy.MaxAttempts),
		InitialBackoff: policy.InitialBackoff,
		MaxBackoff:     policy.InitialBackoff * 8,
		Multiplier:     backoffCoefficient,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("queue", "run_research"),
	}, func(ctx context.Context) error {
		attempts++
		return q.Activities.RunResearch(ctx, job)
	})

	outcome := Outcome{Succeeded: runErr == nil}
	if runErr != nil {
		outcome.Attempts = attempts
		outcome.Error = runErr.Error()
	}
	if err := q.Activities.RecordOutcome(ctx, job, outcome); err != nil {
		return err
	}
	return runErr
}
