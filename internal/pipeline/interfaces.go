package pipeline

import (
	"context"

	infra "github.com/dvloznov/receipt-ledger/internal/infra/bigquery"
)

// ImageArchiver keeps a copy of every scanned image. Archiving is best effort:
// a failure is logged and never fails the image.
type ImageArchiver interface {
	Archive(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error)
}

// ModelOutputRecorder stores the raw model response for later inspection.
// Recording is best effort like archiving.
type ModelOutputRecorder interface {
	RecordModelOutput(ctx context.Context, row *infra.ModelOutputRow) error
}
