package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/config"
	"github.com/aaryan23/cold-email-os/internal/model"
)

// ErrAlreadyRunning is returned when a research job for the tenant is
// still in flight.
var ErrAlreadyRunning = errors.New("queue: research already running for tenant")

// Dial connects to the Temporal frontend.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewLogger(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "queue: dial temporal %s", cfg.HostPort)
	}
	return c, nil
}

// WorkflowID is the workflow ID used for a tenant's research job.
func WorkflowID(tenantID string) string {
	return fmt.Sprintf("research-%s", tenantID)
}

// Client enqueues research jobs as Temporal workflows.
type Client struct {
	temporal  client.Client
	taskQueue string
	policy    Policy
}

// NewClient creates a Client.
func NewClient(c client.Client, taskQueue string, policy Policy) *Client {
	return &Client{temporal: c, taskQueue: taskQueue, policy: policy.withDefaults()}
}

// Enqueue starts the research workflow for job. It returns
// ErrAlreadyRunning when one is already in flight for the tenant.
func (q *Client) Enqueue(ctx context.Context, job model.ResearchJob) error {
	opts := client.StartWorkflowOptions{
		ID:                                       WorkflowID(job.TenantID),
		TaskQueue:                                q.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := q.temporal.ExecuteWorkflow(ctx, opts, ResearchWorkflow, ResearchInput{Job: job, Policy: q.policy})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return ErrAlreadyRunning
		}
		return eris.Wrap(err, "queue: start research workflow")
	}
	zap.L().Info("queue: research workflow started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
		zap.String("report_id", job.ReportID),
	)
	return nil
}

// NewWorker registers the research workflow and activities on taskQueue.
func NewWorker(c client.Client, taskQueue string, concurrency int, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: concurrency,
	})
	w.RegisterWorkflow(ResearchWorkflow)
	w.RegisterActivity(acts)
	return w
}
