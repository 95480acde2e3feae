package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/jobs"
	"github.com/dvloznov/receipt-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

type mockRunner struct {
	RunFunc func(ctx context.Context, batchID string, images []pipeline.Image, progress pipeline.Progress) (*pipeline.Report, error)
}

func (m *mockRunner) Run(ctx context.Context, batchID string, images []pipeline.Image, progress pipeline.Progress) (*pipeline.Report, error) {
	return m.RunFunc(ctx, batchID, images, progress)
}

type mockRetrier struct {
	RetryWriteFunc func(ctx context.Context, report *pipeline.Report) error
}

func (m *mockRetrier) RetryWrite(ctx context.Context, report *pipeline.Report) error {
	return m.RetryWriteFunc(ctx, report)
}

func TestPermanent(t *testing.T) {
	if jobs.Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	base := errors.New("bad header")
	err := fmt.Errorf("wrapped: %w", jobs.Permanent(base))
	if !jobs.IsPermanent(err) {
		t.Error("wrapped permanent error not detected")
	}
	if !errors.Is(err, base) {
		t.Error("permanent error should unwrap to its cause")
	}
	if jobs.IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
}

func TestScanHandler_StoresReportAndProgress(t *testing.T) {
	store := inmemory.NewStore()
	runner := &mockRunner{
		RunFunc: func(_ context.Context, batchID string, images []pipeline.Image, progress pipeline.Progress) (*pipeline.Report, error) {
			for i, img := range images {
				progress(i+1, len(images), img.Filename)
			}
			return &pipeline.Report{BatchID: batchID, Attempted: len(images)}, nil
		},
	}
	job := &jobs.ScanBatchJob{
		JobID:   "job-1",
		BatchID: "batch-1",
		Images:  []pipeline.Image{{Filename: "a.jpg"}, {Filename: "b.jpg"}},
	}

	if err := jobs.NewScanHandler(runner, store)(context.Background(), job); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if job.Report == nil || job.Report.BatchID != "batch-1" || job.Report.Attempted != 2 {
		t.Errorf("report = %+v", job.Report)
	}

	saved, err := store.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if saved.Done != 2 {
		t.Errorf("saved progress = %d, want 2", saved.Done)
	}
}

func TestScanHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantPermanent bool
	}{
		{name: "configuration", err: fmt.Errorf("Run: %w", pipeline.ErrConfiguration), wantPermanent: true},
		{name: "cancelled", err: context.Canceled, wantPermanent: true},
		{name: "transient", err: errors.New("503 from sheets"), wantPermanent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{
				RunFunc: func(context.Context, string, []pipeline.Image, pipeline.Progress) (*pipeline.Report, error) {
					return nil, tt.err
				},
			}
			err := jobs.NewScanHandler(runner, nil)(context.Background(), &jobs.ScanBatchJob{JobID: "j"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := jobs.IsPermanent(err); got != tt.wantPermanent {
				t.Errorf("IsPermanent = %v, want %v", got, tt.wantPermanent)
			}
		})
	}
}

type otherJob struct{}

func (otherJob) GetID() string             { return "x" }
func (otherJob) GetType() jobs.JobType     { return "other" }
func (otherJob) GetStatus() jobs.JobStatus { return jobs.JobStatusPending }

func TestScanHandler_UnknownJobTypeIsPermanent(t *testing.T) {
	err := jobs.NewScanHandler(&mockRunner{}, nil)(context.Background(), otherJob{})
	if !jobs.IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
}

func TestRetryWrite(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	pending := []domain.Row{{Filename: "a.jpg"}, {Filename: "a.jpg"}}
	_ = store.SaveJob(ctx, &jobs.ScanBatchJob{
		JobID:  "job-1",
		Status: jobs.JobStatusWriteFailed,
		Report: &pipeline.Report{PersistError: "quota", PendingRows: pending},
	})

	calls := 0
	retrier := &mockRetrier{
		RetryWriteFunc: func(_ context.Context, report *pipeline.Report) error {
			calls++
			if len(report.PendingRows) != 2 {
				t.Errorf("pending rows = %d, want 2", len(report.PendingRows))
			}
			report.RowsAppended += len(report.PendingRows)
			report.PendingRows = nil
			report.PersistError = ""
			return nil
		},
	}

	job, err := jobs.RetryWrite(ctx, store, retrier, "job-1")
	if err != nil {
		t.Fatalf("RetryWrite: %v", err)
	}
	if job.Status != jobs.JobStatusCompleted || job.Report.RowsAppended != 2 {
		t.Errorf("job = %+v report = %+v", job, job.Report)
	}

	saved, _ := store.GetJob(ctx, "job-1")
	if saved.Status != jobs.JobStatusCompleted {
		t.Errorf("saved status = %s", saved.Status)
	}

	if _, err := jobs.RetryWrite(ctx, store, retrier, "job-1"); !errors.Is(err, jobs.ErrNothingToWrite) {
		t.Errorf("second retry err = %v, want ErrNothingToWrite", err)
	}
	if calls != 1 {
		t.Errorf("retrier calls = %d, want 1", calls)
	}
}

func TestRetryWrite_StillFailing(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	_ = store.SaveJob(ctx, &jobs.ScanBatchJob{
		JobID:  "job-1",
		Status: jobs.JobStatusWriteFailed,
		Report: &pipeline.Report{PendingRows: []domain.Row{{}}},
	})
	retrier := &mockRetrier{
		RetryWriteFunc: func(context.Context, *pipeline.Report) error { return errors.New("still down") },
	}

	job, err := jobs.RetryWrite(ctx, store, retrier, "job-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if job.Status != jobs.JobStatusWriteFailed || job.Error != "still down" {
		t.Errorf("job = %+v", job)
	}
}

func TestRetryWrite_UnknownJob(t *testing.T) {
	_, err := jobs.RetryWrite(context.Background(), inmemory.NewStore(), &mockRetrier{}, "nope")
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}
