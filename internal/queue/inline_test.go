package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInline_Success(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, testJob()).Return(nil).Once()
	reports := new(mockReports)

	q := &Inline{Activities: &Activities{Runner: runner, Reports: reports}}
	require.NoError(t, q.Enqueue(context.Background(), testJob()))
	runner.AssertExpectations(t)
	reports.AssertNotCalled(t, "FailReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestInline_RetriesAndMarksFailed(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, testJob()).Return(errors.New("parse failed")).Times(2)
	reports := new(mockReports)
	reports.On("FailReport", mock.Anything, "r1", "parse failed").Return(nil).Once()

	q := &Inline{
		Activities: &Activities{Runner: runner, Reports: reports},
		Policy:     Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond},
	}
	err := q.Enqueue(context.Background(), testJob())
	assert.EqualError(t, err, "parse failed")
	runner.AssertExpectations(t)
	reports.AssertExpectations(t)
}
