package model

import (
	"strings"
	"time"
)

// PerformanceTag records how a piece of copy performed historically.
type PerformanceTag string

const (
	PerformanceWinner  PerformanceTag = "winner"
	PerformanceAverage PerformanceTag = "average"
	PerformanceLoser   PerformanceTag = "loser"
	PerformanceUnknown PerformanceTag = "unknown"
)

// ParsePerformanceTag normalizes s, mapping anything unrecognised to unknown.
func ParsePerformanceTag(s string) PerformanceTag {
	switch tag := PerformanceTag(strings.ToLower(strings.TrimSpace(s))); tag {
	case PerformanceWinner, PerformanceAverage, PerformanceLoser:
		return tag
	}
	return PerformanceUnknown
}

// Wildcard is the metadata value that matches every facet.
const Wildcard = "all"

// Document types and source types with special meaning.
const (
	DocTypePlaybook = "playbook"
	DocTypeGuide    = "guide"
	DocTypeCampaign = "campaign"

	SourceGlobalSeed = "global_seed"
	SourceUpload     = "upload"
	SourceXLSX       = "xlsx"
	SourceNotion     = "notion"
)

// ChunkMetadata holds the retrieval facets of a KB document and its chunks.
type ChunkMetadata struct {
	Vertical       string         `json:"vertical" yaml:"vertical"`
	OfferType      string         `json:"offer_type" yaml:"offer_type"`
	FunnelStage    string         `json:"funnel_stage" yaml:"funnel_stage"`
	Tone           string         `json:"tone" yaml:"tone"`
	PerformanceTag PerformanceTag `json:"performance_tag" yaml:"performance_tag"`
}

// WithDefaults fills empty facets with their defaults.
func (m ChunkMetadata) WithDefaults() ChunkMetadata {
	if m.Vertical == "" {
		m.Vertical = Wildcard
	}
	if m.OfferType == "" {
		m.OfferType = Wildcard
	}
	if m.FunnelStage == "" {
		m.FunnelStage = "awareness"
	}
	if m.Tone == "" {
		m.Tone = "direct"
	}
	m.PerformanceTag = ParsePerformanceTag(string(m.PerformanceTag))
	return m
}

// KBDocument is an append-only source unit. An empty TenantID marks a global
// document.
type KBDocument struct {
	ID         string        `json:"id"`
	TenantID   string        `json:"tenant_id,omitempty"`
	Title      string        `json:"title"`
	DocType    string        `json:"doc_type"`
	SourceType string        `json:"source_type"`
	Metadata   ChunkMetadata `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}

// KBChunk is an immutable slice of a document's text.
type KBChunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	TenantID   string        `json:"tenant_id,omitempty"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`

	// Joined from the owning document on read.
	DocTitle string `json:"doc_title,omitempty"`
	DocType  string `json:"doc_type,omitempty"`
}

// IsCanonical reports whether the chunk belongs to a global playbook.
func (c KBChunk) IsCanonical() bool {
	return c.TenantID == "" && c.DocType == DocTypePlaybook
}
