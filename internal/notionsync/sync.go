// Package notionsync mirrors a built BOM document into a Notion database, one page
// per item keyed by the item id.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

const pageSize = 100

// Options controls a sync run.
type Options struct {
	// DryRun logs what would change without calling the write endpoints.
	DryRun bool
	// ArchiveStale archives pages whose item id is no longer in the document.
	ArchiveStale bool
}

// Result counts what a sync did. Failed items are logged and skipped.
type Result struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// SyncItems upserts every item of doc into the database: an existing page with the
// same Item ID is updated in place, otherwise a page is created. A page listing
// failure aborts the run; a single item failing does not.
func SyncItems(ctx context.Context, svc NotionService, databaseID string, doc *domain.Document, opts Options) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	pages, err := queryAllPages(ctx, svc, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncItems: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if id := itemIDOf(page); id != "" {
			existing[id] = string(page.ID)
		}
	}

	log.Info().
		Int("items", len(doc.Items)).
		Int("pages", len(pages)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting Notion sync")

	inDocument := make(map[string]bool, len(doc.Items))
	for _, item := range doc.Items {
		inDocument[item.ID] = true
		pageID, found := existing[item.ID]

		if opts.DryRun {
			if found {
				res.Updated++
			} else {
				res.Created++
			}
			log.Debug().Str("item_id", item.ID).Bool("exists", found).Msg("[DRY RUN] Would upsert Notion page")
			continue
		}

		props := ItemToNotionProperties(item)
		if found {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("item_id", item.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		// A repeated id updates the page just created.
		existing[item.ID] = string(page.ID)
		res.Created++
	}

	if opts.ArchiveStale {
		for id, pageID := range existing {
			if inDocument[id] {
				continue
			}
			if !opts.DryRun {
				if err := svc.ArchivePage(ctx, pageID); err != nil {
					log.Warn().Err(err).Str("item_id", id).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
					res.Failed++
					continue
				}
			}
			res.Archived++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Notion sync completed")

	return res, nil
}

// queryAllPages pages through the whole database.
func queryAllPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: pageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("query pages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
