package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

// ImageExtractor extracts one receipt from one image.
type ImageExtractor interface {
	Extract(ctx context.Context, batchID string, img Image) (*Extraction, error)
}

// Progress is called once per finished image. done increases by one on every
// call and reaches total on the last one.
type Progress func(done, total int, filename string)

// Success is one image that produced a receipt.
type Success struct {
	Filename   string         `json:"filename"`
	Receipt    domain.Receipt `json:"receipt"`
	Warnings   []Warning      `json:"warnings,omitempty"`
	Rows       int            `json:"rows"`
	ArchiveURI string         `json:"archive_uri,omitempty"`
}

// Failure is one image that produced no receipt.
type Failure struct {
	Filename string `json:"filename"`
	Stage    Stage  `json:"stage,omitempty"`
	Reason   string `json:"reason"`
}

// Report summarizes one batch run.
type Report struct {
	BatchID      string    `json:"batch_id"`
	Attempted    int       `json:"attempted"`
	Succeeded    []Success `json:"succeeded"`
	Failed       []Failure `json:"failed"`
	RowsAppended int       `json:"rows_appended"`
	PersistError string    `json:"persist_error,omitempty"`

	// PendingRows holds rows that could not be appended, for RetryWrite.
	PendingRows []domain.Row `json:"-"`
}

// PendingRowCount is the number of rows still waiting to be written.
func (r *Report) PendingRowCount() int {
	return len(r.PendingRows)
}

// Batch runs extraction over a set of images and persists the result with a
// single append.
type Batch struct {
	extractor   ImageExtractor
	writer      *Writer
	concurrency int
	now         func() time.Time
}

// BatchOption customizes NewBatch.
type BatchOption func(*Batch)

// WithConcurrency sets the number of images extracted in parallel, clamped to
// [1, MaxConcurrency]. The default of 1 is strictly sequential.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		switch {
		case n < 1:
			n = 1
		case n > MaxConcurrency:
			n = MaxConcurrency
		}
		b.concurrency = n
	}
}

// WithClock overrides the clock used for the "Timestamp Added" column.
func WithClock(now func() time.Time) BatchOption {
	return func(b *Batch) { b.now = now }
}

// NewBatch returns a batch pipeline.
func NewBatch(extractor ImageExtractor, writer *Writer, opts ...BatchOption) *Batch {
	b := &Batch{
		extractor:   extractor,
		writer:      writer,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes images in input order. The worksheet header is checked first;
// a configuration error aborts the run before any image is touched. A failing
// image never affects the others. An empty batchID gets a generated one.
func (b *Batch) Run(ctx context.Context, batchID string, images []Image, progress Progress) (*Report, error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	log := logger.FromContext(ctx).With().Str("batch_id", batchID).Logger()
	ctx = logger.WithContext(ctx, log)

	if err := b.writer.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	report := &Report{
		BatchID:   batchID,
		Attempted: len(images),
		Succeeded: []Success{},
		Failed:    []Failure{},
	}
	if len(images) == 0 {
		return report, nil
	}

	results := b.extractAll(ctx, batchID, images, progress)

	now := b.now()
	var rows []domain.Row
	for i, res := range results {
		filename := images[i].Filename
		if res.err != nil {
			report.Failed = append(report.Failed, failureFrom(filename, res.err))
			log.Error().Err(res.err).Str("filename", filename).Msg("image failed")
			continue
		}
		projected := Project(filename, res.ext.Receipt, now)
		rows = append(rows, projected...)
		report.Succeeded = append(report.Succeeded, Success{
			Filename:   filename,
			Receipt:    res.ext.Receipt,
			Warnings:   res.ext.Warnings,
			Rows:       len(projected),
			ArchiveURI: res.ext.ArchiveURI,
		})
		if len(projected) == 0 {
			log.Warn().Str("filename", filename).Msg("receipt has no items, nothing to write")
		}
	}

	b.persist(ctx, report, rows)

	log.Info().
		Int("attempted", report.Attempted).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Int("rows_appended", report.RowsAppended).
		Msg("batch finished")
	return report, nil
}

// RetryWrite re-attempts the append of rows left pending by a failed write.
func (b *Batch) RetryWrite(ctx context.Context, report *Report) error {
	if len(report.PendingRows) == 0 {
		return nil
	}
	if err := b.writer.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("RetryWrite: %w", err)
	}
	b.persist(ctx, report, report.PendingRows)
	if report.PersistError != "" {
		return fmt.Errorf("RetryWrite: %s", report.PersistError)
	}
	return nil
}

func (b *Batch) persist(ctx context.Context, report *Report, rows []domain.Row) {
	if len(rows) == 0 {
		return
	}
	n, err := b.writer.Append(ctx, rows)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Int("rows", len(rows)).Msg("appending rows failed, rows kept for retry")
		report.PersistError = err.Error()
		report.PendingRows = rows
		return
	}
	report.RowsAppended += n
	report.PersistError = ""
	report.PendingRows = nil
}

type extractResult struct {
	ext *Extraction
	err error
}

func (b *Batch) extractAll(ctx context.Context, batchID string, images []Image, progress Progress) []extractResult {
	results := make([]extractResult, len(images))

	var mu sync.Mutex
	done := 0
	finished := func(filename string) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil {
			progress(done, len(images), filename)
		}
	}

	if b.concurrency <= 1 {
		for i, img := range images {
			ext, err := b.extractor.Extract(ctx, batchID, img)
			results[i] = extractResult{ext: ext, err: err}
			finished(img.Filename)
		}
		return results
	}

	// Per-image errors live in results; the group never cancels.
	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, img := range images {
		g.Go(func() error {
			ext, err := b.extractor.Extract(ctx, batchID, img)
			results[i] = extractResult{ext: ext, err: err}
			finished(img.Filename)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func failureFrom(filename string, err error) Failure {
	f := Failure{Filename: filename, Reason: err.Error()}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		f.Stage = extErr.Stage
	}
	return f
}
