package kb

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/pkg/notion"
)

// Select property names read from a Notion knowledge-base database.
const (
	PropPerformance = "Performance"
	PropVertical    = "Vertical"
	PropDocType     = "Type"
	PropOfferType   = "Offer Type"
	PropFunnelStage = "Funnel Stage"
)

// ImportNotion ingests every page of a Notion database. An empty tenantID
// imports global documents. Pages already imported under the same title are
// skipped.
func (in *Ingester) ImportNotion(ctx context.Context, client notion.Client, databaseID, tenantID string) (*ImportSummary, error) {
	pages, err := notion.QueryAll(ctx, client, databaseID, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: query notion database %s", databaseID)
	}

	log := zap.L().With(zap.String("database_id", databaseID))
	summary := &ImportSummary{Rows: len(pages)}
	for _, page := range pages {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		res, err := in.importPage(ctx, client, page, tenantID)
		switch {
		case err != nil:
			log.Warn("kb: notion page failed", zap.String("page_id", string(page.ID)), zap.Error(err))
			summary.Failed++
		case res == nil || res.Skipped:
			summary.Skipped++
		default:
			summary.Ingested++
		}
	}
	log.Info("kb: notion import complete",
		zap.Int("pages", summary.Rows),
		zap.Int("ingested", summary.Ingested),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (in *Ingester) importPage(ctx context.Context, client notion.Client, page notionapi.Page, tenantID string) (*IngestResult, error) {
	doc := PageDocument(page, tenantID)
	if doc.Title == "" {
		return nil, nil
	}

	blocks, err := notion.PageBlocks(ctx, client, string(page.ID))
	if err != nil {
		return nil, err
	}
	text := notion.BlocksText(blocks)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return in.IngestOnce(ctx, doc, text)
}

// PageDocument maps a Notion page's properties to a KB document.
func PageDocument(page notionapi.Page, tenantID string) model.KBDocument {
	docType := strings.ToLower(notion.PropertyText(page, PropDocType))
	if docType == "" {
		docType = model.DocTypeGuide
	}
	return model.KBDocument{
		TenantID:   tenantID,
		Title:      notion.PageTitle(page),
		DocType:    docType,
		SourceType: model.SourceNotion,
		Metadata: model.ChunkMetadata{
			Vertical:       strings.ToLower(notion.PropertyText(page, PropVertical)),
			OfferType:      strings.ToLower(notion.PropertyText(page, PropOfferType)),
			FunnelStage:    strings.ToLower(notion.PropertyText(page, PropFunnelStage)),
			PerformanceTag: model.ParsePerformanceTag(notion.PropertyText(page, PropPerformance)),
		}.WithDefaults(),
	}
}
