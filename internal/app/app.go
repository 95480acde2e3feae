// Package app wires configuration, credentials and backends into the services
// shared by the api and cli binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
	"github.com/dvloznov/receipt-ledger/internal/sheets"
	"github.com/dvloznov/receipt-ledger/internal/sheets/google"
	"github.com/dvloznov/receipt-ledger/internal/sheets/memory"
)

// Services holds everything a binary needs to scan receipts and serve analytics.
type Services struct {
	Config    *config.Config
	Worksheet sheets.Worksheet
	Writer    *pipeline.Writer
	Batch     *pipeline.Batch
	Loader    *analytics.Loader
	Taxonomy  pipeline.Taxonomy
	Budgets   map[string]float64

	// Audit is nil unless BIGQUERY_PROJECT and BIGQUERY_DATASET are set.
	Audit *infraBQ.ModelOutputRepository

	// Checks are the dependency probes served by /health.
	Checks map[string]func(ctx context.Context) error

	closers []func() error
}

// Credentials resolves the service credentials: secrets file first, then environment.
func Credentials(cfg *config.Config) (*config.Credentials, error) {
	file, err := config.NewTOMLSource(cfg.SecretsFile)
	if err != nil {
		return nil, fmt.Errorf("Credentials: %w", err)
	}
	creds, err := config.LoadCredentials(file, config.EnvSource{})
	if err != nil {
		return nil, fmt.Errorf("Credentials: %w", err)
	}
	return creds, nil
}

// OpenWorksheet connects to the configured worksheet backend. For Google Sheets
// it verifies the spreadsheet is shared with the service account.
func OpenWorksheet(ctx context.Context, cfg *config.Config, creds *config.Credentials) (sheets.Worksheet, func(context.Context) error, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		return memory.New(), func(context.Context) error { return nil }, nil
	case config.BackendSheets:
		ws, err := google.New(ctx, creds.SheetsCredentialsJSON, cfg.SpreadsheetID, cfg.WorksheetName)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenWorksheet: %w: %v", pipeline.ErrConfiguration, err)
		}
		if err := ws.CheckAccess(ctx); err != nil {
			return nil, nil, fmt.Errorf("OpenWorksheet: %w: %v (share the spreadsheet with %s)",
				pipeline.ErrConfiguration, err, creds.ClientEmail)
		}
		return ws, ws.CheckAccess, nil
	default:
		return nil, nil, fmt.Errorf("OpenWorksheet: %w: unknown backend %q", pipeline.ErrConfiguration, cfg.DataBackend)
	}
}

// Build resolves credentials and assembles the extraction pipeline, the writer
// and the analytics loader. Optional archive and audit backends are attached
// when configured. Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	creds, err := Credentials(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("api_key_source", creds.Sources[config.KeyGoogleAPIKey]).
		Str("sheets_source", creds.Sources[config.KeySheetsCredentials]).
		Str("service_account", creds.ClientEmail).
		Msg("Credentials resolved")

	s := &Services{
		Config:   cfg,
		Taxonomy: pipeline.DefaultTaxonomy(),
		Checks:   map[string]func(ctx context.Context) error{},
	}

	s.Budgets, err = config.LoadBudgets(cfg.BudgetsFile)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	ws, check, err := OpenWorksheet(ctx, cfg, creds)
	if err != nil {
		return nil, err
	}
	s.Worksheet = ws
	s.Checks["worksheet"] = check

	inferer, err := pipeline.NewGeminiInferer(ctx, creds.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("Build: %w: %v", pipeline.ErrConfiguration, err)
	}

	opts := []pipeline.ExtractorOption{
		pipeline.WithTaxonomy(s.Taxonomy),
		pipeline.WithInferenceTimeout(cfg.InferenceTimeout),
	}

	if cfg.ArchiveBucket != "" {
		archiver, err := gcsuploader.NewArchiver(ctx, cfg.ArchiveBucket)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("Build: %w", err)
		}
		s.closers = append(s.closers, archiver.Close)
		opts = append(opts, pipeline.WithArchiver(archiver))
		log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Image archive enabled")
	}

	if cfg.AuditEnabled() {
		repo, err := infraBQ.NewModelOutputRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("Build: %w", err)
		}
		s.closers = append(s.closers, repo.Close)
		if err := repo.EnsureTable(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("Build: %w", err)
		}
		s.Audit = repo
		opts = append(opts, pipeline.WithModelOutputRecorder(repo))
		log.Info().
			Str("project", cfg.BigQueryProject).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Model output audit enabled")
	}

	s.Loader = analytics.NewLoader(ws, cfg.AnalyticsCacheTTL)
	s.Writer = pipeline.NewWriter(ws)
	s.Writer.OnAppend(s.Loader.Invalidate)
	s.Batch = pipeline.NewBatch(
		pipeline.NewExtractor(inferer, opts...),
		s.Writer,
		pipeline.WithConcurrency(cfg.ExtractConcurrency),
	)
	return s, nil
}

// Close releases the optional backends.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
