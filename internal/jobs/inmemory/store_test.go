package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/receipt-ledger/internal/jobs"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

func TestStore_SaveCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	job := &jobs.ScanBatchJob{JobID: "j1", Status: jobs.JobStatusPending, Report: &pipeline.Report{RowsAppended: 1}}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	job.Status = jobs.JobStatusRunning
	job.Report.RowsAppended = 5

	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.JobStatusPending || got.Report.RowsAppended != 1 {
		t.Errorf("stored job changed through caller pointer: %+v %+v", got, got.Report)
	}
}

func TestStore_RequiresID(t *testing.T) {
	if err := NewStore().SaveJob(context.Background(), &jobs.ScanBatchJob{}); err == nil {
		t.Error("expected error for empty job ID")
	}
}

func TestStore_GetUnknown(t *testing.T) {
	_, err := NewStore().GetJob(context.Background(), "nope")
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		_ = s.SaveJob(ctx, &jobs.ScanBatchJob{
			JobID:     string(rune('a' + i)),
			BatchID:   "batch-" + string(rune('a'+i)),
			Status:    st,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all newest first", filter: jobs.JobFilter{}, want: []string{"c", "b", "a"}},
		{name: "by status", filter: jobs.JobFilter{Status: jobs.JobStatusCompleted}, want: []string{"c", "a"}},
		{name: "by batch", filter: jobs.JobFilter{BatchID: "batch-b"}, want: []string{"b"}},
		{name: "limit and offset", filter: jobs.JobFilter{Offset: 1, Limit: 1}, want: []string{"b"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 5}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			got := []string{}
			for _, j := range list {
				got = append(got, j.JobID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestStore_ListJobs_SameCreatedAtOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"z", "m", "a"} {
		_ = s.SaveJob(ctx, &jobs.ScanBatchJob{JobID: id, CreatedAt: at})
	}

	list, err := s.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	got := []string{}
	for _, j := range list {
		got = append(got, j.JobID)
	}
	if diff := cmp.Diff([]string{"a", "m", "z"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.SaveJob(ctx, &jobs.ScanBatchJob{JobID: "j1", Status: jobs.JobStatusRunning})

	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusCompleted, ""); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	got, _ = s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusCompleted || got.Error != "boom" {
		t.Errorf("empty message should keep previous error, job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}
