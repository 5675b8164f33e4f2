package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, following cursors.
// Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// PageBlocks fetches every top-level block of a page.
func PageBlocks(ctx context.Context, c Client, pageID string) ([]notionapi.Block, error) {
	var all []notionapi.Block
	cursor := ""
	for {
		resp, err := c.GetBlockChildren(ctx, pageID, cursor)
		if err != nil {
			return nil, eris.Wrap(err, "notion: page blocks")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = string(resp.NextCursor)
	}
}
