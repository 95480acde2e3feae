package handlers

import "net/http"

// Handlers bundles the endpoint groups served by the API binary.
type Handlers struct {
	Batches    *BatchesHandler
	Jobs       *JobsHandler
	Categories *CategoriesHandler
	Analytics  *AnalyticsHandler
	Health     http.HandlerFunc
}

// Routes registers every endpoint on a new mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Batches and jobs
	mux.HandleFunc("POST /api/batches", h.Batches.CreateBatch)
	mux.HandleFunc("GET /api/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.Jobs.GetJob)
	mux.HandleFunc("POST /api/jobs/{id}/retry-write", h.Jobs.RetryWrite)

	// Categories
	mux.HandleFunc("GET /api/categories", h.Categories.ListCategories)

	// Analytics
	mux.HandleFunc("GET /api/analytics/overview", h.Analytics.Overview)
	mux.HandleFunc("GET /api/analytics/daily", h.Analytics.Daily)
	mux.HandleFunc("GET /api/analytics/categories", h.Analytics.Categories)
	mux.HandleFunc("GET /api/analytics/category", h.Analytics.Category)
	mux.HandleFunc("GET /api/analytics/items", h.Analytics.Items)
	mux.HandleFunc("GET /api/analytics/receipts", h.Analytics.Receipts)
	mux.HandleFunc("GET /api/analytics/receipt", h.Analytics.Receipt)
	mux.HandleFunc("GET /api/analytics/time", h.Analytics.Time)
	mux.HandleFunc("GET /api/analytics/budget", h.Analytics.Budget)
	mux.HandleFunc("GET /api/analytics/quality", h.Analytics.Quality)
	mux.HandleFunc("POST /api/analytics/refresh", h.Analytics.Refresh)

	// Health check endpoint
	if h.Health != nil {
		mux.HandleFunc("GET /health", h.Health)
	}

	return mux
}
