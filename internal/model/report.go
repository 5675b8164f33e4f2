package model

import (
	"encoding/json"
	"time"
)

// ReportStatus tracks a research run from request to publication.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// ResearchReport is the output of one research run. At most one report per
// tenant is active.
type ResearchReport struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	TranscriptText string          `json:"transcript_text"`
	WebsiteURL     string          `json:"website_url,omitempty"`
	ReportJSON     json.RawMessage `json:"report_json,omitempty"`
	ReportText     string          `json:"report_text,omitempty"`
	IsActive       bool            `json:"is_active"`
	Status         ReportStatus    `json:"status"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ResearchJob is the queued unit of work for one research run.
type ResearchJob struct {
	TenantID       string `json:"tenant_id"`
	TranscriptText string `json:"transcript_text"`
	ReportID       string `json:"report_id"`
	WebsiteURL     string `json:"website_url,omitempty"`
}

// MinTranscriptLength is the shortest transcript accepted for research.
const MinTranscriptLength = 50
