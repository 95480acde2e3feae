package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/receipt-ledger/internal/jobs"
)

// Store keeps scan jobs in a map guarded by a mutex. Jobs go in and come out
// as clones, so callers never share state with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ScanBatchJob
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ScanBatchJob),
	}
}

// SaveJob stores a snapshot of job under its JobID, replacing any earlier one.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ScanBatchJob) error {
	if job.JobID == "" {
		return errors.New("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.JobID] = job.Clone()
	return nil
}

// GetJob returns a snapshot of the job, or ErrJobNotFound.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ScanBatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}

	return job.Clone(), nil
}

// ListJobs returns jobs matching filter, newest first, with ties broken by ID.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ScanBatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.ScanBatchJob{}
	for _, job := range s.jobs {
		if filter.BatchID != "" && job.BatchID != filter.BatchID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, job.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ScanBatchJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus sets the status in place. An empty errorMsg keeps the previous error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
