// Package generation writes cold-email campaign sequences from a tenant's
// active research report and retrieved knowledge-base context.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/llm"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/internal/rag"
	"github.com/aaryan23/cold-email-os/internal/research"
)

const (
	DefaultSequenceLength = 4
	MinSequenceLength     = 2
	MaxSequenceLength     = 6

	retrievalTopK       = 15
	generationMaxTokens = 8192
	phaseGeneration     = "generation"
)

var (
	// ErrNoActiveReport is returned when the tenant has no published research.
	ErrNoActiveReport = errors.New("generation: no active research report, run research first")
	// ErrInvalidSequenceLength is returned for lengths outside [2, 6].
	ErrInvalidSequenceLength = errors.New("generation: sequence length must be between 2 and 6")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request describes one campaign generation.
type Request struct {
	TenantID       string
	Persona        string
	Vertical       string
	SequenceLength int
}

// Output is the validated campaign set returned by the model.
type Output struct {
	Angles []Angle `json:"angles" validate:"min=1,dive"`
}

// Angle is one campaign angle with its email sequence.
type Angle struct {
	AngleName    string  `json:"angle_name" validate:"required"`
	AngleSummary string  `json:"angle_summary" validate:"required"`
	Sequence     []Email `json:"sequence" validate:"min=1,dive"`
}

// Email is one step of a sequence.
type Email struct {
	Step    int    `json:"step" validate:"min=1"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// Store is the persistence the generator needs.
type Store interface {
	GetActiveReport(ctx context.Context, tenantID string) (*model.ResearchReport, error)
	RecordGeneration(ctx context.Context, g *model.Generation) error
}

// Retriever selects knowledge-base context.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID string, q rag.Query) ([]rag.Scored, error)
}

// Generator produces campaigns.
type Generator struct {
	store     Store
	retriever Retriever
	llm       llm.Gateway
}

// New creates a Generator.
func New(st Store, r Retriever, gw llm.Gateway) *Generator {
	return &Generator{store: st, retriever: r, llm: gw}
}

// Generate writes campaigns for req, records them and advances the tenant
// to READY_TO_GENERATE.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Generation, error) {
	if req.SequenceLength == 0 {
		req.SequenceLength = DefaultSequenceLength
	}
	if req.SequenceLength < MinSequenceLength || req.SequenceLength > MaxSequenceLength {
		return nil, ErrInvalidSequenceLength
	}
	req.Persona = strings.TrimSpace(req.Persona)
	req.Vertical = strings.TrimSpace(req.Vertical)

	report, err := g.store.GetActiveReport(ctx, req.TenantID)
	if err != nil {
		return nil, eris.Wrap(err, "generation: get active report")
	}
	if report == nil {
		return nil, ErrNoActiveReport
	}

	chunks, err := g.retriever.Retrieve(ctx, req.TenantID, rag.Query{
		Text:     req.Persona + " " + req.Vertical,
		Vertical: req.Vertical,
		TopK:     retrievalTopK,
	})
	if err != nil {
		return nil, eris.Wrap(err, "generation: retrieve context")
	}

	var parsed research.Report
	if len(report.ReportJSON) > 0 {
		if err := json.Unmarshal(report.ReportJSON, &parsed); err != nil {
			zap.L().Warn("generation: report json unreadable, skipping customer DNA", zap.String("report_id", report.ID), zap.Error(err))
		}
	}

	system, user := buildPrompt(report.ReportText, parsed.CustomerDNA, chunks, req)

	log := zap.L().With(zap.String("tenant_id", req.TenantID), zap.String("persona", req.Persona), zap.String("vertical", req.Vertical))
	log.Info("generation: generating campaigns", zap.Int("chunks", len(chunks)))

	raw, err := g.llm.CompleteJSON(ctx, llm.Request{
		Phase:     phaseGeneration,
		System:    system,
		User:      user,
		MaxTokens: generationMaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "generation: complete")
	}
	out, err := decodeOutput(raw)
	if err != nil {
		log.Error("generation: invalid model output", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	normalized, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "generation: marshal output")
	}

	gen := &model.Generation{
		TenantID:          req.TenantID,
		Persona:           req.Persona,
		Vertical:          req.Vertical,
		SequenceLength:    req.SequenceLength,
		RetrievedChunkIDs: ids,
		Output:            normalized,
	}
	if err := g.store.RecordGeneration(ctx, gen); err != nil {
		return nil, eris.Wrap(err, "generation: record")
	}

	log.Info("generation: campaigns recorded", zap.String("generation_id", gen.ID), zap.Int("angles", len(out.Angles)))
	return gen, nil
}

func decodeOutput(raw json.RawMessage) (*Output, error) {
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "generation: decode output")
	}
	if err := validate.Struct(&out); err != nil {
		return nil, eris.Wrap(err, "generation: validate output")
	}
	return &out, nil
}
