package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeScanBatch represents a receipt batch scan job.
	JobTypeScanBatch JobType = "scan_batch"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusWriteFailed indicates extraction finished but the rows could not
	// be appended; the rows are kept for a retry-write.
	JobStatusWriteFailed JobStatus = "write_failed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries is applied to jobs published without MaxRetries.
const DefaultMaxRetries = 3

// ScanBatchJob represents one uploaded set of receipt images.
type ScanBatchJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// BatchID is handed to the pipeline and ties log lines, archive objects
	// and model-output records together.
	BatchID string `json:"batch_id"`

	// Filenames lists the uploaded images in input order.
	Filenames []string `json:"filenames"`

	// Images holds the uploaded bytes until the job reaches a final state.
	Images []pipeline.Image `json:"-"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Done counts images whose extraction has finished.
	Done int `json:"done"`

	// Report is the batch outcome once the run finished.
	Report *pipeline.Report `json:"report,omitempty"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ScanBatchJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ScanBatchJob) GetType() JobType {
	return JobTypeScanBatch
}

// GetStatus implements the Job interface.
func (j *ScanBatchJob) GetStatus() JobStatus {
	return j.Status
}

// Clone returns a copy that shares no mutable state with j. Image bytes are
// shared since they are never modified.
func (j *ScanBatchJob) Clone() *ScanBatchJob {
	c := *j
	c.Filenames = append([]string(nil), j.Filenames...)
	if j.Report != nil {
		r := *j.Report
		c.Report = &r
	}
	return &c
}

// OutcomeStatus is the status of a job whose handler returned without error.
func (j *ScanBatchJob) OutcomeStatus() JobStatus {
	if j.Report != nil && j.Report.PendingRowCount() > 0 {
		return JobStatusWriteFailed
	}
	return JobStatusCompleted
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishScanBatch publishes a batch scan job.
	PublishScanBatch(ctx context.Context, job *ScanBatchJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// A returned error is retried unless it is marked Permanent.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ScanBatchJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ScanBatchJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ScanBatchJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// BatchID filters jobs by batch ID.
	BatchID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// ErrJobNotFound is returned by stores for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so the queue fails the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
