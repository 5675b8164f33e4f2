package kb

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// Column order of a campaign history sheet.
const (
	colSubject = iota
	colBody
	colVertical
	colOfferType
	colFunnelStage
	colPerformance
)

// XLSXOptions selects the sheet to import.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ImportSummary counts the outcome of a bulk import.
type ImportSummary struct {
	Rows     int
	Ingested int
	Skipped  int
	Failed   int
}

// ReadXLSX returns every row of the selected sheet as strings.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

// ImportXLSX ingests each campaign row of the sheet at path as a
// tenant-scoped campaign document. A header row starting with "subject" is
// skipped.
func (in *Ingester) ImportXLSX(ctx context.Context, tenantID, path string, opts XLSXOptions) (*ImportSummary, error) {
	rows, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && strings.EqualFold(strings.TrimSpace(cell(rows[0], colSubject)), "subject") {
		rows = rows[1:]
	}

	summary := &ImportSummary{Rows: len(rows)}
	for i, row := range rows {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		subject := strings.TrimSpace(cell(row, colSubject))
		body := strings.TrimSpace(cell(row, colBody))
		if body == "" {
			summary.Skipped++
			continue
		}
		if subject == "" {
			subject = fmt.Sprintf("Campaign row %d", i+1)
		}

		doc := model.KBDocument{
			TenantID:   tenantID,
			Title:      subject,
			DocType:    model.DocTypeCampaign,
			SourceType: model.SourceXLSX,
			Metadata: model.ChunkMetadata{
				Vertical:       strings.TrimSpace(cell(row, colVertical)),
				OfferType:      strings.TrimSpace(cell(row, colOfferType)),
				FunnelStage:    strings.TrimSpace(cell(row, colFunnelStage)),
				PerformanceTag: model.ParsePerformanceTag(cell(row, colPerformance)),
			},
		}
		if _, err := in.IngestText(ctx, doc, "Subject: "+subject+"\n\n"+body); err != nil {
			zap.L().Warn("kb: xlsx row failed", zap.Int("row", i+1), zap.Error(err))
			summary.Failed++
			continue
		}
		summary.Ingested++
	}
	return summary, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}
