package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// PlainText joins the plain text of a rich text run.
func PlainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

// PageTitle returns the value of the page's title property.
func PageTitle(p notionapi.Page) string {
	for _, prop := range p.Properties {
		if t, ok := prop.(*notionapi.TitleProperty); ok {
			return strings.TrimSpace(PlainText(t.Title))
		}
	}
	return ""
}

// PropertyText returns a select, rich text or title property as a string.
// Missing or unsupported properties yield "".
func PropertyText(p notionapi.Page, name string) string {
	switch prop := p.Properties[name].(type) {
	case *notionapi.SelectProperty:
		return prop.Select.Name
	case *notionapi.RichTextProperty:
		return strings.TrimSpace(PlainText(prop.RichText))
	case *notionapi.TitleProperty:
		return strings.TrimSpace(PlainText(prop.Title))
	}
	return ""
}

// BlocksText renders text-bearing blocks as paragraphs separated by blank
// lines. Headings and list items become their own paragraphs; unsupported
// block types are skipped.
func BlocksText(blocks []notionapi.Block) string {
	var paras []string
	for _, b := range blocks {
		var text string
		switch blk := b.(type) {
		case *notionapi.ParagraphBlock:
			text = PlainText(blk.Paragraph.RichText)
		case *notionapi.Heading1Block:
			text = PlainText(blk.Heading1.RichText)
		case *notionapi.Heading2Block:
			text = PlainText(blk.Heading2.RichText)
		case *notionapi.Heading3Block:
			text = PlainText(blk.Heading3.RichText)
		case *notionapi.BulletedListItemBlock:
			text = "- " + PlainText(blk.BulletedListItem.RichText)
		case *notionapi.NumberedListItemBlock:
			text = "- " + PlainText(blk.NumberedListItem.RichText)
		case *notionapi.QuoteBlock:
			text = PlainText(blk.Quote.RichText)
		}
		if text = strings.TrimSpace(text); text != "" && text != "-" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n\n")
}
