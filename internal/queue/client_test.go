package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
)

func TestClient_Enqueue(t *testing.T) {
	tc := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("research-t1")
	run.On("GetRunID").Return("run-1")

	policy := Policy{MaxAttempts: 4, InitialBackoff: time.Second, Timeout: time.Minute}
	tc.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "research-t1" && o.TaskQueue == "research" && o.WorkflowExecutionErrorWhenAlreadyStarted
	}), mock.Anything, ResearchInput{Job: testJob(), Policy: policy}).Return(run, nil)

	q := NewClient(tc, "research", policy)
	require.NoError(t, q.Enqueue(context.Background(), testJob()))
	tc.AssertExpectations(t)
}

func TestClient_EnqueueAlreadyRunning(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &serviceerror.WorkflowExecutionAlreadyStarted{Message: "workflow execution already started"})

	q := NewClient(tc, "research", Policy{})
	err := q.Enqueue(context.Background(), testJob())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestClient_EnqueueError(t *testing.T) {
	tc := &mocks.Client{}
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	err := NewClient(tc, "research", Policy{}).Enqueue(context.Background(), testJob())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRunning)
	assert.Contains(t, err.Error(), "connection refused")
}
