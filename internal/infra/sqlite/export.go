// Package sqlite exports a BOM document into a self-contained SQLite file for ad-hoc
// querying and for shipping alongside the website data.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

const driverName = "sqlite"

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS metadata (
		generated_at TEXT NOT NULL, source_file TEXT NOT NULL, source_sheet TEXT,
		total_items INTEGER NOT NULL, total_cost REAL NOT NULL, skipped_rows INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY, name TEXT NOT NULL, description TEXT NOT NULL,
		vendor TEXT NOT NULL, part_number TEXT NOT NULL, vendor_url TEXT,
		quantity INTEGER NOT NULL, unit_price REAL NOT NULL, total_price REAL NOT NULL,
		category TEXT NOT NULL, build_phase INTEGER NOT NULL,
		order_date TEXT, notes TEXT, subassembly TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS items_vendor ON items(vendor)`,
	`CREATE INDEX IF NOT EXISTS items_phase ON items(build_phase)`,
}

const (
	deleteMetadataSQL = `DELETE FROM metadata`
	deleteItemsSQL    = `DELETE FROM items`
	insertMetadataSQL = `INSERT INTO metadata (generated_at, source_file, source_sheet, total_items, total_cost, skipped_rows)
		VALUES (?, ?, ?, ?, ?, ?)`
	insertItemSQL = `INSERT INTO items (id, name, description, vendor, part_number, vendor_url, quantity,
		unit_price, total_price, category, build_phase, order_date, notes, subassembly)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.Open: create directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite.Open: apply schema: %w", err)
		}
	}
	return db, nil
}

// Export replaces the contents of the database at path with doc in one transaction.
func Export(ctx context.Context, path string, doc *domain.Document) error {
	db, err := Open(ctx, path)
	if err != nil {
		return fmt.Errorf("Export: %w", err)
	}
	defer db.Close()

	if err := replaceDocument(ctx, db, doc); err != nil {
		return fmt.Errorf("Export: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("path", path).
		Int("items", len(doc.Items)).
		Msg("Exported BOM to SQLite")
	return nil
}

func replaceDocument(ctx context.Context, db *sql.DB, doc *domain.Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{deleteMetadataSQL, deleteItemsSQL} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	m := doc.Metadata
	if _, err := tx.ExecContext(ctx, insertMetadataSQL,
		m.GeneratedAt, m.SourceFile, nullable(m.SourceSheet), m.TotalItems, m.TotalCost, m.SkippedRows,
	); err != nil {
		return fmt.Errorf("insert metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertItemSQL)
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range doc.Items {
		var orderDate any
		if item.OrderDate != nil {
			orderDate = item.OrderDate.String()
		}
		if _, err := stmt.ExecContext(ctx,
			item.ID, item.Name, item.Description, item.Vendor, item.PartNumber, nullable(item.VendorURL),
			item.Quantity, item.UnitPrice, item.TotalPrice, string(item.Category), int(item.BuildPhase),
			orderDate, nullable(item.Notes), nullable(item.Subassembly),
		); err != nil {
			return fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
