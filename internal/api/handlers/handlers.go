package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/jobs"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

const (
	// MaxImageSize is the per-file upload limit.
	MaxImageSize = 25 << 20

	// ImagesField is the multipart field carrying the receipt images.
	ImagesField = "images"

	multipartMemory = 32 << 20
)

// allowedExtensions are the accepted image file types.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// BatchesHandler accepts uploads and enqueues them as scan jobs.
type BatchesHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewBatchesHandler creates a new batches handler.
func NewBatchesHandler(publisher jobs.Publisher, log zerolog.Logger) *BatchesHandler {
	return &BatchesHandler{
		publisher: publisher,
		log:       log,
	}
}

// CreateBatch handles POST /api/batches
func (h *BatchesHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[ImagesField]
	if len(files) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "At least one file in field \"images\" is required")
		return
	}

	job := &jobs.ScanBatchJob{}
	for _, fh := range files {
		img, status, err := readImage(fh)
		if err != nil {
			middleware.WriteError(w, status, err.Error())
			return
		}
		job.Filenames = append(job.Filenames, img.Filename)
		job.Images = append(job.Images, img)
	}

	if err := h.publisher.PublishScanBatch(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scan job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue scan job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("batch_id", job.BatchID).
		Int("images", len(job.Images)).
		Msg("Scan job enqueued")

	// The worker owns job from here on; only immutable fields are read.
	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":    job.JobID,
		"batch_id":  job.BatchID,
		"filenames": job.Filenames,
		"status":    jobs.JobStatusPending,
	})
}

func readImage(fh *multipart.FileHeader) (pipeline.Image, int, error) {
	name := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return pipeline.Image{}, http.StatusUnsupportedMediaType,
			fmt.Errorf("%s: unsupported file type %q (png, jpg, jpeg, webp)", name, ext)
	}
	if fh.Size > MaxImageSize {
		return pipeline.Image{}, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%s: file exceeds %d MiB", name, MaxImageSize>>20)
	}

	f, err := fh.Open()
	if err != nil {
		return pipeline.Image{}, http.StatusBadRequest, fmt.Errorf("%s: cannot read upload", name)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return pipeline.Image{}, http.StatusBadRequest, fmt.Errorf("%s: cannot read upload", name)
	}
	if len(data) > MaxImageSize {
		return pipeline.Image{}, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%s: file exceeds %d MiB", name, MaxImageSize>>20)
	}
	return pipeline.Image{Filename: name, Data: data}, 0, nil
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store   jobs.JobStore
	retrier jobs.WriteRetrier
	log     zerolog.Logger

	// retryMu serializes retry-writes so pending rows are appended once.
	retryMu sync.Mutex
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, retrier jobs.WriteRetrier, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:   store,
		retrier: retrier,
		log:     log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		BatchID: query.Get("batch_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// RetryWrite handles POST /api/jobs/{id}/retry-write
func (h *JobsHandler) RetryWrite(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	h.retryMu.Lock()
	defer h.retryMu.Unlock()

	job, err := jobs.RetryWrite(r.Context(), h.store, h.retrier, jobID)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, jobs.ErrNothingToWrite):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case err != nil && job != nil:
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Retry write failed")
		middleware.WriteJSON(w, http.StatusBadGateway, job)
	case err != nil:
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Retry write failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Retry write failed")
	default:
		h.log.Info().Str("job_id", jobID).Int("rows_appended", job.Report.RowsAppended).Msg("Pending rows written")
		middleware.WriteJSON(w, http.StatusOK, job)
	}
}

// CategoriesHandler serves the category taxonomy.
type CategoriesHandler struct {
	taxonomy pipeline.Taxonomy
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(taxonomy pipeline.Taxonomy) *CategoriesHandler {
	return &CategoriesHandler{taxonomy: taxonomy}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.taxonomy.All(),
		"groups":     h.taxonomy.Groups(),
		"count":      h.taxonomy.Len(),
	})
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Health handles GET /health. A failing check turns the response into 503.
func Health(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		middleware.WriteJSON(w, status, map[string]interface{}{
			"status": state,
			"checks": results,
		})
	}
}
