package kb

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aaryan23/cold-email-os/internal/model"
)

// ErrNoFrontmatter is returned for markdown files without a YAML header.
var ErrNoFrontmatter = errors.New("kb: no frontmatter found")

var md = goldmark.New()

const lockRetryDelay = 250 * time.Millisecond

// Frontmatter is the YAML header of a seed document.
type Frontmatter struct {
	Title          string `yaml:"title"`
	DocType        string `yaml:"doc_type"`
	SourceType     string `yaml:"source_type"`
	Vertical       string `yaml:"vertical"`
	OfferType      string `yaml:"offer_type"`
	FunnelStage    string `yaml:"funnel_stage"`
	Tone           string `yaml:"tone"`
	PerformanceTag string `yaml:"performance_tag"`
}

// Document converts the header to a global document with defaults applied.
func (f Frontmatter) Document() model.KBDocument {
	doc := model.KBDocument{
		Title:      f.Title,
		DocType:    f.DocType,
		SourceType: f.SourceType,
		Metadata: model.ChunkMetadata{
			Vertical:       f.Vertical,
			OfferType:      f.OfferType,
			FunnelStage:    f.FunnelStage,
			Tone:           f.Tone,
			PerformanceTag: model.PerformanceTag(f.PerformanceTag),
		}.WithDefaults(),
	}
	if doc.Title == "" {
		doc.Title = "Untitled"
	}
	if doc.DocType == "" {
		doc.DocType = model.DocTypeGuide
	}
	if doc.SourceType == "" {
		doc.SourceType = model.SourceGlobalSeed
	}
	return doc
}

// ParseMarkdown splits src into its frontmatter and the body rendered as
// plain text.
func ParseMarkdown(src []byte) (Frontmatter, string, error) {
	var fm Frontmatter
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(src, []byte("---\n")) {
		return fm, "", ErrNoFrontmatter
	}
	rest := src[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, "", ErrNoFrontmatter
	}
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, "", eris.Wrap(err, "kb: parse frontmatter")
	}

	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return fm, MarkdownText(body), nil
}

// MarkdownText renders markdown as plain text with blank lines between
// blocks, so the chunker sees one paragraph per block.
func MarkdownText(src []byte) string {
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *ast.ListItem:
			if entering {
				b.WriteString("- ")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
			b.WriteString("\n\n")
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// SeedSummary counts the outcome of a seed run.
type SeedSummary struct {
	Files    int
	Ingested int
	Skipped  int
	Failed   int
}

// SeedDir ingests every .md file in dir as a global document. Documents
// already present are skipped. lockPath serialises concurrent seeders.
func (in *Ingester) SeedDir(ctx context.Context, dir, lockPath string) (*SeedSummary, error) {
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: acquire seed lock %s", lockPath)
	}
	if !locked {
		return nil, eris.Errorf("kb: seed lock %s is held", lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, eris.Wrap(err, "kb: list seed files")
	}
	sort.Strings(files)

	log := zap.L().With(zap.String("dir", dir))
	log.Info("kb: seeding", zap.Int("files", len(files)))

	summary := &SeedSummary{Files: len(files)}
	for _, path := range files {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		res, err := in.seedFile(ctx, path)
		switch {
		case errors.Is(err, ErrNoFrontmatter):
			log.Warn("kb: skipping file without frontmatter", zap.String("file", filepath.Base(path)))
			summary.Skipped++
		case err != nil:
			log.Error("kb: seed file failed", zap.String("file", filepath.Base(path)), zap.Error(err))
			summary.Failed++
		case res.Skipped:
			summary.Skipped++
		default:
			summary.Ingested++
		}
	}

	log.Info("kb: seed complete",
		zap.Int("ingested", summary.Ingested),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (in *Ingester) seedFile(ctx context.Context, path string) (*IngestResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: read %s", path)
	}
	fm, body, err := ParseMarkdown(src)
	if err != nil {
		return nil, err
	}
	return in.IngestOnce(ctx, fm.Document(), body)
}
