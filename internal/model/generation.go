package model

import (
	"encoding/json"
	"time"
)

// Generation is one campaign-generation call. Generations are never updated.
type Generation struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	Persona           string          `json:"persona"`
	Vertical          string          `json:"vertical"`
	SequenceLength    int             `json:"sequence_length"`
	RetrievedChunkIDs []string        `json:"retrieved_chunk_ids"`
	Output            json.RawMessage `json:"output"`
	CreatedAt         time.Time       `json:"created_at"`
}
