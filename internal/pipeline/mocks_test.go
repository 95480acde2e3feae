package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	infra "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
)

// mockInferer is a mock implementation of Inferer for testing.
type mockInferer struct {
	InferFunc func(ctx context.Context, prompt string, img DecodedImage) (*InferenceResult, error)
}

func (m *mockInferer) Infer(ctx context.Context, prompt string, img DecodedImage) (*InferenceResult, error) {
	if m.InferFunc != nil {
		return m.InferFunc(ctx, prompt, img)
	}
	return &InferenceResult{Text: `{"items": []}`, Model: "mock"}, nil
}

// mockArchiver is a mock implementation of ImageArchiver for testing.
type mockArchiver struct {
	ArchiveFunc func(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error)
}

func (m *mockArchiver) Archive(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error) {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, batchID, filename, contentType, data)
	}
	return "gs://archive/" + filename, nil
}

// mockRecorder is a mock implementation of ModelOutputRecorder for testing.
type mockRecorder struct {
	mu   sync.Mutex
	rows []*infra.ModelOutputRow
	err  error
}

func (m *mockRecorder) RecordModelOutput(ctx context.Context, row *infra.ModelOutputRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	return m.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
