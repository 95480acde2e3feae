package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/app"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/logger"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

func main() {
	cfg := config.Load()

	log, err := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log = logger.New()
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan(cfg, log)
	case "upload":
		runUpload(log)
	case "categories":
		runCategories()
	case "report":
		runReport(cfg, log)
	case "inspect":
		runInspect(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Receipt Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  scan        Extract receipts from images and append them to the worksheet")
	fmt.Println("  upload      Upload a receipt image to GCS")
	fmt.Println("  categories  List the category taxonomy")
	fmt.Println("  report      Print spending totals for a date range")
	fmt.Println("  inspect     Show recorded model outputs for a batch")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runScan(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	batchID := fs.String("batch-id", "", "Batch ID (generated when empty)")
	timeout := fs.Duration("timeout", 30*time.Minute, "Overall timeout for the batch")
	fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		log.Fatal().Msg("Usage: cli scan [-batch-id ID] <files|dirs|gs://...>")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sources, err := expandInputs(fs.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve inputs")
	}
	if len(sources) == 0 {
		log.Fatal().Msg("No images found")
	}
	images, err := loadImages(ctx, gcsuploader.NewGCSStorageService(), sources)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read images")
	}

	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svc.Close()

	report, err := svc.Batch.Run(ctx, *batchID, images, func(done, total int, filename string) {
		fmt.Printf("[%d/%d] %s\n", done, total, filename)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Batch aborted")
	}

	printReport(report)
	if report.PersistError != "" {
		os.Exit(1)
	}
}

func printReport(report *pipeline.Report) {
	fmt.Printf("\n=== Batch %s ===\n", report.BatchID)
	fmt.Printf("Attempted: %d\n", report.Attempted)

	fmt.Printf("\nSucceeded (%d):\n", len(report.Succeeded))
	for _, s := range report.Succeeded {
		fmt.Printf("  %s  %s %s  %d rows\n", s.Filename, s.Receipt.MerchantName, s.Receipt.TransactionDate, s.Rows)
		for _, w := range s.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}

	fmt.Printf("\nFailed (%d):\n", len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  %s  [%s] %s\n", f.Filename, f.Stage, f.Reason)
	}

	fmt.Printf("\nRows appended: %d\n", report.RowsAppended)
	if report.PersistError != "" {
		fmt.Printf("Write failed, %d rows not saved: %s\n", report.PendingRowCount(), report.PersistError)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", os.Getenv("ARCHIVE_BUCKET"), "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local receipt image")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	store := gcsuploader.NewGCSStorageService()
	if err := store.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runCategories() {
	tax := pipeline.DefaultTaxonomy()
	for _, g := range tax.Groups() {
		fmt.Println(g.Name)
		for _, c := range g.Categories {
			fmt.Printf("  %s\n", c)
		}
	}
	fmt.Printf("\n%d categories\n", tax.Len())
}

func runReport(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	start := fs.String("start", "", "First day (YYYY-MM-DD)")
	end := fs.String("end", "", "Last day (YYYY-MM-DD)")
	fs.Parse(os.Args[2:])

	rng, err := analytics.ParseRange(*start, *end)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	creds, err := app.Credentials(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve credentials")
	}
	ws, _, err := app.OpenWorksheet(ctx, cfg, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open worksheet")
	}

	all, err := analytics.NewLoader(ws, cfg.AnalyticsCacheTTL).Dataset(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load expenses")
	}
	ds := all.Filter(rng)
	ov := ds.Overview(rng)

	fmt.Println("\n=== Overview ===")
	fmt.Printf("Range:          %s .. %s (%d days)\n", ov.Range.Start, ov.Range.End, ov.Days)
	fmt.Printf("Items:          %d\n", ov.ItemCount)
	fmt.Printf("Item spending:  %s\n", ov.ItemSpending.StringFixed(2))
	fmt.Printf("Receipts:       %d (total %s)\n", ov.ReceiptCount, ov.ReceiptTotals.StringFixed(2))
	fmt.Printf("Per day:        %s\n", ov.AveragePerDay.StringFixed(2))
	fmt.Printf("Per receipt:    %s\n", ov.AveragePerBill.StringFixed(2))
	if ov.DroppedRows > 0 {
		fmt.Printf("Skipped rows:   %d (unreadable date)\n", ov.DroppedRows)
	}

	fmt.Println("\n=== Categories ===")
	for _, c := range ds.SpendingByCategory() {
		fmt.Printf("%10s  %s (%d items)\n", c.Amount.StringFixed(2), c.Category, c.Items)
	}

	if unc := ds.Uncategorized(); len(unc) > 0 {
		fmt.Printf("\n%d items are uncategorized\n", len(unc))
	}
	fmt.Println()
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	batchID := fs.String("batch-id", "", "Batch ID to inspect")
	showRaw := fs.Bool("raw", false, "Print the raw model output")
	fs.Parse(os.Args[2:])

	if *batchID == "" {
		log.Fatal().Msg("Error: --batch-id is required")
	}
	if !cfg.AuditEnabled() {
		log.Fatal().Msg("BIGQUERY_PROJECT and BIGQUERY_DATASET must be set")
	}

	ctx := logger.WithContext(context.Background(), log)

	repo, err := infraBQ.NewModelOutputRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	outputs, err := repo.ListModelOutputs(ctx, *batchID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list model outputs")
	}

	fmt.Printf("\n=== Model outputs for batch %s (%d) ===\n", *batchID, len(outputs))
	for i, out := range outputs {
		fmt.Printf("\n%d. %s\n", i+1, out.Filename)
		fmt.Printf("   Model:   %s\n", out.ModelName)
		fmt.Printf("   Status:  %s\n", out.Status)
		if out.ErrorMessage.Valid {
			fmt.Printf("   Error:   %s\n", out.ErrorMessage.StringVal)
		}
		if out.PromptTokens.Valid {
			fmt.Printf("   Tokens:  %d prompt / %d candidate\n", out.PromptTokens.Int64, out.CandidateTokens.Int64)
		}
		if out.CreatedTS.Valid {
			fmt.Printf("   Created: %s\n", out.CreatedTS.Timestamp.Format(time.RFC3339))
		}
		if *showRaw {
			fmt.Printf("   Raw:\n%s\n", out.RawText)
		}
	}
	fmt.Println()
}
