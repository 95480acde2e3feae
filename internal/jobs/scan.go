package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/receipt-ledger/internal/logger"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

// BatchRunner runs one receipt batch.
type BatchRunner interface {
	Run(ctx context.Context, batchID string, images []pipeline.Image, progress pipeline.Progress) (*pipeline.Report, error)
}

// NewScanHandler returns a JobHandler that runs scan jobs through runner and
// saves progress to store after every image. Configuration errors and
// cancellation are permanent; per-image failures live in the report and do
// not fail the job.
func NewScanHandler(runner BatchRunner, store JobStore) JobHandler {
	return func(ctx context.Context, job Job) error {
		scan, ok := job.(*ScanBatchJob)
		if !ok {
			return Permanent(fmt.Errorf("unexpected job type: %T", job))
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", scan.JobID).
			Str("batch_id", scan.BatchID).
			Logger()
		ctx = logger.WithContext(ctx, log)

		scan.Done = 0
		progress := func(done, total int, filename string) {
			scan.Done = done
			log.Debug().Int("done", done).Int("total", total).Str("filename", filename).Msg("Image processed")
			if store != nil {
				_ = store.SaveJob(ctx, scan)
			}
		}

		report, err := runner.Run(ctx, scan.BatchID, scan.Images, progress)
		if err != nil {
			if errors.Is(err, pipeline.ErrConfiguration) || errors.Is(err, context.Canceled) {
				return Permanent(err)
			}
			return err
		}
		scan.Report = report
		return nil
	}
}

// WriteRetrier re-attempts a failed append.
type WriteRetrier interface {
	RetryWrite(ctx context.Context, report *pipeline.Report) error
}

// ErrNothingToWrite is returned by RetryWrite for jobs without pending rows.
var ErrNothingToWrite = errors.New("job has no pending rows")

// RetryWrite appends the pending rows of a write_failed job and stores the
// updated job. The extraction results are not recomputed.
func RetryWrite(ctx context.Context, store JobStore, retrier WriteRetrier, jobID string) (*ScanBatchJob, error) {
	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("RetryWrite: %w", err)
	}
	if job.Status != JobStatusWriteFailed || job.Report == nil {
		return job, fmt.Errorf("RetryWrite: job %s is %s: %w", jobID, job.Status, ErrNothingToWrite)
	}

	retryErr := retrier.RetryWrite(ctx, job.Report)
	job.Status = job.OutcomeStatus()
	if retryErr != nil {
		job.Error = retryErr.Error()
	} else {
		job.Error = ""
	}
	if err := store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("RetryWrite: saving job: %w", err)
	}
	if retryErr != nil {
		return job, fmt.Errorf("RetryWrite: %w", retryErr)
	}
	return job, nil
}
