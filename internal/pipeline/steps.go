package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	infra "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
	"github.com/dvloznov/receipt-ledger/internal/logger"
)

// PipelineStep represents a single step in per-image extraction.
type PipelineStep interface {
	Execute(ctx context.Context, state *ExtractionState) error
}

// ExtractionState holds the shared state across all steps for one image.
type ExtractionState struct {
	BatchID string
	Image   Image

	Decoded    DecodedImage
	ArchiveURI string
	Inference  *InferenceResult
	Payload    string
	Parsed     Value
	Receipt    domain.Receipt
	Warnings   []Warning
}

// Extraction is the successful outcome for one image.
type Extraction struct {
	Filename   string
	Receipt    domain.Receipt
	Warnings   []Warning
	ArchiveURI string
}

func fail(state *ExtractionState, stage Stage, err error) error {
	return &ExtractionError{Filename: state.Image.Filename, Stage: stage, Err: err}
}

// DecodeImageStep rejects anything that is not a decodable PNG, JPEG or WEBP.
type DecodeImageStep struct{}

func (s *DecodeImageStep) Execute(ctx context.Context, state *ExtractionState) error {
	decoded, err := DecodeImage(state.Image.Data, state.Image.Filename)
	if err != nil {
		return fail(state, StageDecode, err)
	}
	state.Decoded = decoded
	return nil
}

// ArchiveImageStep copies the image to the archive bucket. Best effort.
type ArchiveImageStep struct {
	Archiver ImageArchiver
}

func (s *ArchiveImageStep) Execute(ctx context.Context, state *ExtractionState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, state.BatchID, state.Decoded.Filename, state.Decoded.MIMEType, state.Decoded.Data)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("filename", state.Image.Filename).Msg("archiving image failed")
		return nil
	}
	state.ArchiveURI = uri
	return nil
}

// InferStep sends the prompt and image to the model, bounded by Timeout.
type InferStep struct {
	Inferer Inferer
	Prompt  string
	Timeout time.Duration
}

func (s *InferStep) Execute(ctx context.Context, state *ExtractionState) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.Inferer.Infer(ctx, s.Prompt, state.Decoded)
	if err != nil {
		return fail(state, StageInfer, err)
	}
	state.Inference = result
	return nil
}

// RecoverJSONStep slices the JSON payload out of the model text.
type RecoverJSONStep struct{}

func (s *RecoverJSONStep) Execute(ctx context.Context, state *ExtractionState) error {
	payload, err := RecoverJSON(state.Inference.Text)
	if err != nil {
		return fail(state, StageRecover, err)
	}
	state.Payload = payload
	return nil
}

// ParseJSONStep parses the recovered payload.
type ParseJSONStep struct{}

func (s *ParseJSONStep) Execute(ctx context.Context, state *ExtractionState) error {
	v, err := ParseValue(state.Payload)
	if err != nil {
		return fail(state, StageParse, err)
	}
	state.Parsed = v
	return nil
}

// CoerceStep normalizes the parsed value into a domain.Receipt.
type CoerceStep struct {
	Coercer *Coercer
}

func (s *CoerceStep) Execute(ctx context.Context, state *ExtractionState) error {
	receipt, warnings, err := s.Coercer.Coerce(state.Parsed, state.Image.Filename)
	if err != nil {
		return fail(state, StageCoerce, err)
	}
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn().
			Str("filename", w.Filename).
			Str("description", w.Description).
			Str("category", w.Category).
			Msg("invalid item category, using default")
	}
	state.Receipt = receipt
	state.Warnings = warnings
	return nil
}

// Extractor runs the extraction steps for one image at a time. It is safe for
// concurrent use as long as its collaborators are.
type Extractor struct {
	steps    []PipelineStep
	recorder ModelOutputRecorder
}

// ExtractorOption customizes NewExtractor.
type ExtractorOption func(*extractorOptions)

type extractorOptions struct {
	taxonomy Taxonomy
	timeout  time.Duration
	archiver ImageArchiver
	recorder ModelOutputRecorder
}

// WithTaxonomy overrides the default category taxonomy.
func WithTaxonomy(t Taxonomy) ExtractorOption {
	return func(o *extractorOptions) { o.taxonomy = t }
}

// WithInferenceTimeout bounds each model call.
func WithInferenceTimeout(d time.Duration) ExtractorOption {
	return func(o *extractorOptions) { o.timeout = d }
}

// WithArchiver enables image archiving.
func WithArchiver(a ImageArchiver) ExtractorOption {
	return func(o *extractorOptions) { o.archiver = a }
}

// WithModelOutputRecorder enables raw model output auditing.
func WithModelOutputRecorder(r ModelOutputRecorder) ExtractorOption {
	return func(o *extractorOptions) { o.recorder = r }
}

// NewExtractor builds the standard extraction pipeline:
// decode → archive → infer → recover JSON → parse → coerce.
func NewExtractor(inferer Inferer, opts ...ExtractorOption) *Extractor {
	o := extractorOptions{
		taxonomy: DefaultTaxonomy(),
		timeout:  DefaultInferenceTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Extractor{
		steps: []PipelineStep{
			&DecodeImageStep{},
			&ArchiveImageStep{Archiver: o.archiver},
			&InferStep{Inferer: inferer, Prompt: BuildReceiptPrompt(o.taxonomy), Timeout: o.timeout},
			&RecoverJSONStep{},
			&ParseJSONStep{},
			&CoerceStep{Coercer: NewCoercer(o.taxonomy)},
		},
		recorder: o.recorder,
	}
}

// Extract runs every step for img. Any failure, including a panic inside a
// step, is returned as *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, batchID string, img Image) (ext *Extraction, err error) {
	state := &ExtractionState{BatchID: batchID, Image: img}

	defer func() {
		if r := recover(); r != nil {
			ext = nil
			err = fail(state, StagePanic, fmt.Errorf("panic: %v", r))
		}
		e.recordModelOutput(ctx, state, err)
	}()

	for _, step := range e.steps {
		if err := step.Execute(ctx, state); err != nil {
			var extErr *ExtractionError
			if !errors.As(err, &extErr) {
				err = fail(state, StageUnknown, err)
			}
			return nil, err
		}
	}

	return &Extraction{
		Filename:   img.Filename,
		Receipt:    state.Receipt,
		Warnings:   state.Warnings,
		ArchiveURI: state.ArchiveURI,
	}, nil
}

func (e *Extractor) recordModelOutput(ctx context.Context, state *ExtractionState, extractErr error) {
	if e.recorder == nil || state.Inference == nil {
		return
	}

	row := &infra.ModelOutputRow{
		OutputID:        uuid.NewString(),
		BatchID:         state.BatchID,
		Filename:        state.Image.Filename,
		ModelName:       state.Inference.Model,
		RawText:         state.Inference.Text,
		Status:          infra.ModelOutputStatusOK,
		PromptTokens:    bigquery.NullInt64{Int64: int64(state.Inference.PromptTokens), Valid: true},
		CandidateTokens: bigquery.NullInt64{Int64: int64(state.Inference.CandidateTokens), Valid: true},
		CreatedTS:       bigquery.NullTimestamp{Timestamp: time.Now().UTC(), Valid: true},
	}
	if extractErr != nil {
		row.Status = infra.ModelOutputStatusFailed
		row.ErrorMessage = bigquery.NullString{StringVal: extractErr.Error(), Valid: true}
	}

	if err := e.recorder.RecordModelOutput(ctx, row); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("filename", state.Image.Filename).Msg("recording model output failed")
	}
}
