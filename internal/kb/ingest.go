package kb

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// ErrNoChunks is returned when a document's text yields no chunks.
var ErrNoChunks = errors.New("kb: text produced no chunks")

// DocumentStore is the persistence the ingester needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc model.KBDocument, chunks []string) (*model.KBDocument, error)
	FindDocument(ctx context.Context, title, sourceType string) (*model.KBDocument, error)
}

// Ingester writes documents and their chunks.
type Ingester struct {
	store DocumentStore
}

// NewIngester creates an Ingester.
func NewIngester(st DocumentStore) *Ingester {
	return &Ingester{store: st}
}

// IngestResult reports what happened to one document.
type IngestResult struct {
	Document *model.KBDocument
	Chunks   int
	Skipped  bool
}

// IngestText chunks text and stores it as doc. Chunks inherit the document
// metadata.
func (in *Ingester) IngestText(ctx context.Context, doc model.KBDocument, text string) (*IngestResult, error) {
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		doc.Title = "Untitled"
	}
	if doc.DocType == "" {
		doc.DocType = model.DocTypeGuide
	}
	if doc.SourceType == "" {
		doc.SourceType = model.SourceUpload
	}
	doc.Metadata = doc.Metadata.WithDefaults()

	chunks := Chunk(text)
	if len(chunks) == 0 {
		return nil, eris.Wrapf(ErrNoChunks, "kb: document %q", doc.Title)
	}

	created, err := in.store.CreateDocument(ctx, doc, chunks)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: create document %q", doc.Title)
	}

	zap.L().Info("kb: document ingested",
		zap.String("title", created.Title),
		zap.String("source_type", created.SourceType),
		zap.String("tenant_id", created.TenantID),
		zap.Int("chunks", len(chunks)),
	)
	return &IngestResult{Document: created, Chunks: len(chunks)}, nil
}

// IngestOnce is IngestText, skipping documents whose (title, source type)
// already exists.
func (in *Ingester) IngestOnce(ctx context.Context, doc model.KBDocument, text string) (*IngestResult, error) {
	existing, err := in.store.FindDocument(ctx, strings.TrimSpace(doc.Title), doc.SourceType)
	if err != nil {
		return nil, eris.Wrap(err, "kb: find document")
	}
	if existing != nil {
		zap.L().Info("kb: already ingested, skipping", zap.String("title", existing.Title))
		return &IngestResult{Document: existing, Skipped: true}, nil
	}
	return in.IngestText(ctx, doc, text)
}
