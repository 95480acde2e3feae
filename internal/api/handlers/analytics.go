package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

// DatasetSource provides the cached analytics dataset.
type DatasetSource interface {
	Dataset(ctx context.Context) (analytics.Dataset, error)
	Invalidate()
}

// AnalyticsHandler serves the dashboard views. Every view except budget is
// restricted to the optional start/end query parameters (YYYY-MM-DD).
type AnalyticsHandler struct {
	source   DatasetSource
	budgets  map[string]float64
	taxonomy pipeline.Taxonomy
	now      func() time.Time
	log      zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(source DatasetSource, budgets map[string]float64, taxonomy pipeline.Taxonomy, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		source:   source,
		budgets:  budgets,
		taxonomy: taxonomy,
		now:      time.Now,
		log:      log,
	}
}

// load reads the dataset and applies the request's date range. It writes the
// error response itself and reports false on failure.
func (h *AnalyticsHandler) load(w http.ResponseWriter, r *http.Request) (analytics.Dataset, analytics.Range, bool) {
	query := r.URL.Query()
	rng, err := analytics.ParseRange(query.Get("start"), query.Get("end"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date range: start and end must be YYYY-MM-DD with start <= end")
		return analytics.Dataset{}, analytics.Range{}, false
	}

	ds, err := h.source.Dataset(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load analytics dataset")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to read expense data")
		return analytics.Dataset{}, analytics.Range{}, false
	}
	return ds.Filter(rng), rng, true
}

// Overview handles GET /api/analytics/overview
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ds, rng, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, ds.Overview(rng))
}

// Daily handles GET /api/analytics/daily
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"days": ds.SpendingByDay(),
	})
}

// Categories handles GET /api/analytics/categories
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": ds.SpendingByCategory(),
	})
}

// Category handles GET /api/analytics/category?name=...
// Without a name it lists the categories present in the range.
func (h *AnalyticsHandler) Category(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"categories": ds.Categories(),
		})
		return
	}
	detail, found := ds.CategoryDetail(name)
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "No items in this category for the selected range")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, detail)
}

// Items handles GET /api/analytics/items?description=...
// Without a description it lists the item descriptions present in the range.
func (h *AnalyticsHandler) Items(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	desc := r.URL.Query().Get("description")
	if desc == "" {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"descriptions": ds.Descriptions(),
		})
		return
	}
	report, found := ds.ItemPrices(desc)
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "No purchases of this item for the selected range")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// Receipts handles GET /api/analytics/receipts
func (h *AnalyticsHandler) Receipts(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	list := ds.Receipts()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"receipts": list,
		"count":    len(list),
	})
}

// Receipt handles GET /api/analytics/receipt?id=...
func (h *AnalyticsHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		middleware.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}
	detail, found := ds.ReceiptDetail(id)
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, detail)
}

// Time handles GET /api/analytics/time
func (h *AnalyticsHandler) Time(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"weekdays": ds.SpendingByWeekday(),
		"hours":    ds.SpendingByHour(),
	})
}

// Budget handles GET /api/analytics/budget. It always covers the current
// calendar month and ignores start/end.
func (h *AnalyticsHandler) Budget(w http.ResponseWriter, r *http.Request) {
	ds, err := h.source.Dataset(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load analytics dataset")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to read expense data")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, ds.Budget(h.budgets, h.taxonomy.All(), h.now()))
}

// Quality handles GET /api/analytics/quality
func (h *AnalyticsHandler) Quality(w http.ResponseWriter, r *http.Request) {
	ds, _, ok := h.load(w, r)
	if !ok {
		return
	}
	items := ds.Uncategorized()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uncategorized": items,
		"count":         len(items),
		"dropped_rows":  ds.Dropped,
	})
}

// Refresh handles POST /api/analytics/refresh
func (h *AnalyticsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.source.Invalidate()
	h.log.Info().Msg("Analytics cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}
