package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lightsheet-rebuild/bomtool/internal/config"
	"github.com/lightsheet-rebuild/bomtool/internal/domain"
	infraBQ "github.com/lightsheet-rebuild/bomtool/internal/infra/bigquery"
	"github.com/lightsheet-rebuild/bomtool/internal/infra/sqlite"
	"github.com/lightsheet-rebuild/bomtool/internal/logger"
	"github.com/lightsheet-rebuild/bomtool/internal/metrics"
	"github.com/lightsheet-rebuild/bomtool/internal/notionsync"
	"github.com/lightsheet-rebuild/bomtool/internal/pipeline"
	"github.com/lightsheet-rebuild/bomtool/internal/review"
	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
	"github.com/lightsheet-rebuild/bomtool/internal/storage"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	switch os.Args[1] {
	case "build":
		runBuild(log, cfg)
	case "inspect":
		runInspect(log, cfg)
	case "export":
		runExport(log, cfg)
	case "publish":
		runPublish(log, cfg)
	case "review":
		runReview(log, cfg)
	case "runs":
		runRuns(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("BOM Tool CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  build     Build the BOM document from the purchasing spreadsheet")
	fmt.Println("  inspect   Show a spreadsheet's sheet, columns and first rows")
	fmt.Println("  export    Export a built document to BigQuery, SQLite or Notion")
	fmt.Println("  publish   Upload a built document to GCS or S3")
	fmt.Println("  review    Ask a language model to double-check ambiguous categories")
	fmt.Println("  runs      List recorded build runs")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nSettings come from bom.yaml or BOM_* environment variables; flags override them.")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func newContext(log zerolog.Logger, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return logger.WithContext(ctx, log), cancel
}

// resolveInput returns a local path for input, downloading gs:// and s3:// objects
// into a temp directory. The returned cleanup removes it.
func resolveInput(ctx context.Context, log zerolog.Logger, cfg *config.Config, input string) (string, func()) {
	tmp, err := os.MkdirTemp("", "bom-input-")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create temp directory")
	}
	cleanup := func() { os.RemoveAll(tmp) }

	local, err := storage.ResolveInput(ctx, storage.NewOpener(storage.S3OptionsFromConfig(cfg.S3)), input, tmp)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Str("input", input).Msg("Failed to fetch spreadsheet")
	}
	return local, cleanup
}

func writeTextfile(log zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
	}
}

func runBuild(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	input := fs.String("input", cfg.Input, "Spreadsheet path or gs:// / s3:// URI")
	output := fs.String("output", cfg.Output, "Document output path")
	sheetName := fs.String("sheet", cfg.Sheet, "Worksheet name (default: first sheet)")
	dryRun := fs.Bool("dry-run", false, "Build and report without writing the document")
	record := fs.Bool("record", false, "Record the run and its items in BigQuery")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log, 5*time.Minute)
	defer cancel()

	local, cleanup := resolveInput(ctx, log, cfg, *input)
	defer cleanup()

	opts := pipeline.Options{Input: local, Output: *output, SheetName: *sheetName}
	if *dryRun {
		opts.Output = ""
	}

	log.Info().Str("input", *input).Str("output", opts.Output).Msg("Starting BOM build")

	var result *pipeline.Result
	build := func(ctx context.Context) (*domain.Document, error) {
		r, err := pipeline.Build(ctx, opts)
		if err != nil {
			return nil, err
		}
		result = r
		return r.Document, nil
	}

	var runID string
	var err error
	if *record {
		repo, repoErr := infraBQ.NewBigQueryBuildRunRepository(ctx, cfg.GCP.Project, cfg.BigQuery.Dataset)
		if repoErr != nil {
			cleanup()
			log.Fatal().Err(repoErr).Msg("Failed to create build run repository")
		}
		defer repo.Close()
		_, runID, err = infraBQ.RecordBuild(ctx, repo, filepath.Base(*input), *sheetName, build)
	} else {
		_, err = build(ctx)
	}

	writeTextfile(log, cfg.Metrics.Textfile)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Str("input", *input).Msg("BOM build failed")
	}

	if err := pipeline.WriteReport(os.Stdout, result); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
	}
	if runID != "" {
		fmt.Printf("Recorded build run: %s\n", runID)
	}
	fmt.Println("BOM build completed successfully.")
}

func runInspect(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	input := fs.String("input", cfg.Input, "Spreadsheet path or gs:// / s3:// URI")
	sheetName := fs.String("sheet", cfg.Sheet, "Worksheet name (default: first sheet)")
	rows := fs.Int("rows", 5, "Number of data rows to preview")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log, 2*time.Minute)
	defer cancel()

	local, cleanup := resolveInput(ctx, log, cfg, *input)
	defer cleanup()

	table, err := sheet.Open(local, sheet.Options{SheetName: *sheetName})
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Str("input", *input).Msg("Failed to open spreadsheet")
	}

	fmt.Printf("File: %s (%s)\n", table.SourceFile, table.Format)
	if table.SheetName != "" {
		fmt.Printf("Sheet: %s\n", table.SheetName)
	}
	fmt.Printf("Data rows: %d\n", len(table.Rows))

	columns := table.Columns()
	fmt.Printf("\nColumns (%d):\n", len(columns))
	for i, col := range columns {
		fmt.Printf("  %2d. %s\n", i+1, col)
	}

	preview := table.Preview(*rows)
	fmt.Printf("\nFirst %d rows:\n", len(preview))
	for _, row := range preview {
		fmt.Printf("\nRow %d:\n", row.SheetRow)
		for _, col := range columns {
			v, ok := row.Get(col)
			if !ok || v.IsEmpty() {
				continue
			}
			fmt.Printf("  %-20s %s\n", col+":", v.String())
		}
	}
}

func runExport(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	target := fs.String("target", "sqlite", "Export target: bigquery, sqlite or notion")
	document := fs.String("document", cfg.Output, "Built document to export")
	dbPath := fs.String("db", cfg.SQLite.Path, "SQLite database path")
	notionDB := fs.String("notion-db-id", cfg.Notion.DatabaseID, "Notion database ID")
	archiveStale := fs.Bool("archive-stale", false, "Archive Notion pages for items no longer in the document")
	dryRun := fs.Bool("dry-run", false, "Preview the Notion sync without writing pages")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log, 5*time.Minute)
	defer cancel()

	doc, err := pipeline.LoadDocument(*document)
	if err != nil {
		log.Fatal().Err(err).Str("document", *document).Msg("Failed to load document")
	}

	switch *target {
	case "sqlite":
		if err := sqlite.Export(ctx, *dbPath, doc); err != nil {
			log.Fatal().Err(err).Str("db", *dbPath).Msg("SQLite export failed")
		}
		fmt.Printf("Exported %d items to %s\n", len(doc.Items), *dbPath)

	case "bigquery":
		repo, err := infraBQ.NewBigQueryBuildRunRepository(ctx, cfg.GCP.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create build run repository")
		}
		defer repo.Close()

		if err := repo.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure BigQuery tables")
		}

		_, runID, err := infraBQ.RecordBuild(ctx, repo, doc.Metadata.SourceFile, doc.Metadata.SourceSheet, func(context.Context) (*domain.Document, error) {
			return doc, nil
		})
		if err != nil {
			log.Fatal().Err(err).Msg("BigQuery export failed")
		}
		fmt.Printf("Exported %d items to %s.%s (run %s)\n", len(doc.Items), cfg.GCP.Project, cfg.BigQuery.Dataset, runID)

	case "notion":
		if cfg.Notion.Token == "" {
			log.Fatal().Msg("Error: notion.token (BOM_NOTION_TOKEN) is required")
		}
		if *notionDB == "" {
			log.Fatal().Msg("Error: --notion-db-id is required")
		}

		res, err := notionsync.SyncItems(ctx, notionsync.NewNotionClient(cfg.Notion.Token), *notionDB, doc, notionsync.Options{
			DryRun:       *dryRun,
			ArchiveStale: *archiveStale,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Notion sync failed")
		}
		fmt.Printf("Notion: %d created, %d updated, %d archived, %d failed\n", res.Created, res.Updated, res.Archived, res.Failed)

	default:
		log.Fatal().Str("target", *target).Msg("Error: --target must be bigquery, sqlite or notion")
	}
}

func runPublish(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	target := fs.String("target", "gcs", "Publish target: gcs or s3")
	document := fs.String("document", cfg.Output, "Built document to upload")
	name := fs.String("name", "", "Object name (default: the document's file name)")
	fs.Parse(os.Args[2:])

	objectName := *name
	if objectName == "" {
		objectName = filepath.Base(*document)
	}

	var uri string
	switch *target {
	case "gcs":
		if cfg.GCS.Bucket == "" {
			log.Fatal().Msg("Error: gcs.bucket is not configured")
		}
		uri = storage.Location{Scheme: storage.SchemeGCS, Bucket: cfg.GCS.Bucket, Key: objectName}.String()
	case "s3":
		if cfg.S3.Bucket == "" {
			log.Fatal().Msg("Error: s3.bucket is not configured")
		}
		uri = storage.Location{Scheme: storage.SchemeS3, Bucket: cfg.S3.Bucket, Key: storage.ObjectKey(cfg.S3.Prefix, objectName)}.String()
	default:
		log.Fatal().Str("target", *target).Msg("Error: --target must be gcs or s3")
	}

	ctx, cancel := newContext(log, 5*time.Minute)
	defer cancel()

	// Refuse to publish a file the website could not read.
	if _, err := pipeline.LoadDocument(*document); err != nil {
		log.Fatal().Err(err).Str("document", *document).Msg("Refusing to publish an unreadable document")
	}

	published, err := storage.PublishFile(ctx, storage.NewOpener(storage.S3OptionsFromConfig(cfg.S3)), *document, uri, "application/json")
	if err != nil {
		log.Fatal().Err(err).Str("uri", uri).Msg("Publish failed")
	}

	fmt.Printf("Published %s to %s\n", *document, published)
}

func runReview(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	input := fs.String("input", cfg.Input, "Spreadsheet path or gs:// / s3:// URI")
	sheetName := fs.String("sheet", cfg.Sheet, "Worksheet name (default: first sheet)")
	model := fs.String("model", cfg.GenAI.Model, "Gemini model name")
	batch := fs.Int("batch", 25, "Rows per model request")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log, 10*time.Minute)
	defer cancel()

	local, cleanup := resolveInput(ctx, log, cfg, *input)
	defer cleanup()

	result, err := pipeline.Build(ctx, pipeline.Options{Input: local, SheetName: *sheetName})
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Str("input", *input).Msg("BOM build failed")
	}

	if len(result.Ambiguous) == 0 {
		fmt.Println("No ambiguous rows to review.")
		return
	}

	gemini, err := review.NewGeminiModel(ctx, *model)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	log.Info().Int("rows", len(result.Ambiguous)).Str("model", *model).Msg("Reviewing ambiguous rows")

	suggestions, err := review.NewReviewer(gemini, *batch).Review(ctx, result.Ambiguous)
	if err != nil {
		cleanup()
		log.Fatal().Err(err).Msg("Review failed")
	}

	disagreements := 0
	fmt.Printf("%-6s %-20s %-20s %-12s %-12s %s\n", "ROW", "PART", "VENDOR", "CURRENT", "SUGGESTED", "REASON")
	fmt.Println(strings.Repeat("-", 100))
	for _, s := range suggestions {
		marker := ""
		if !s.Agrees() {
			marker = " *"
			disagreements++
		}
		fmt.Printf("%-6d %-20.20s %-20.20s %-12s %-12s %s%s\n",
			s.SheetRow, s.PartNumber, s.Vendor, s.Current, s.Suggested, s.Reason, marker)
	}

	fmt.Printf("\nReviewed %d of %d ambiguous rows; %d disagreements (*).\n",
		len(suggestions), len(result.Ambiguous), disagreements)
}

func runRuns(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext(log, 2*time.Minute)
	defer cancel()

	repo, err := infraBQ.NewBigQueryBuildRunRepository(ctx, cfg.GCP.Project, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create build run repository")
	}
	defer repo.Close()

	runs, err := repo.ListBuildRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list build runs")
	}

	if len(runs) == 0 {
		fmt.Println("No build runs recorded.")
		return
	}

	fmt.Printf("%-36s %-20s %-8s %6s %14s  %s\n", "RUN", "STARTED", "STATUS", "ITEMS", "TOTAL", "SOURCE")
	for _, run := range runs {
		items, total := "-", "-"
		if run.TotalItems.Valid {
			items = fmt.Sprintf("%d", run.TotalItems.Int64)
		}
		if run.TotalCost.Valid {
			total = pipeline.FormatMoney(run.TotalCost.Float64)
		}
		fmt.Printf("%-36s %-20s %-8s %6s %14s  %s\n",
			run.RunID, run.StartedTS.Format("2006-01-02 15:04:05"), run.Status, items, total, run.SourceFile)
		if run.ErrorMessage != "" {
			fmt.Printf("    error: %s\n", run.ErrorMessage)
		}
	}
}
