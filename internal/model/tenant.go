package model

import (
	"time"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantOnboarded       TenantStatus = "ONBOARDED"
	TenantResearchReady   TenantStatus = "RESEARCH_READY"
	TenantReadyToGenerate TenantStatus = "READY_TO_GENERATE"
	TenantLive            TenantStatus = "LIVE"
)

// Valid reports whether s is a known tenant status.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantOnboarded, TenantResearchReady, TenantReadyToGenerate, TenantLive:
		return true
	}
	return false
}

// Tenant is a client account the system researches and writes campaigns for.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
