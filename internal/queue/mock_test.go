package queue

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aaryan23/cold-email-os/internal/model"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, job model.ResearchJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type mockReports struct {
	mock.Mock
}

func (m *mockReports) FailReport(ctx context.Context, reportID, msg string) error {
	args := m.Called(ctx, reportID, msg)
	return args.Error(0)
}

func testJob() model.ResearchJob {
	return model.ResearchJob{TenantID: "t1", ReportID: "r1", TranscriptText: "transcript"}
}
