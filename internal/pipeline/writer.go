package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/logger"
	"github.com/dvloznov/receipt-ledger/internal/sheets"
)

// Writer persists rows to the worksheet. Appends are serialized; the writer
// never updates or deletes existing rows.
type Writer struct {
	ws sheets.Worksheet

	mu       sync.Mutex
	onAppend []func()
}

// NewWriter returns a Writer for ws.
func NewWriter(ws sheets.Worksheet) *Writer {
	return &Writer{ws: ws}
}

// OnAppend registers fn to run after every successful non-empty append,
// e.g. to drop cached analytics.
func (w *Writer) OnAppend(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onAppend = append(w.onAppend, fn)
}

// EnsureHeader makes row 1 equal to domain.Header. If row 1 already matches,
// nothing is written. Any failure is a configuration error.
func (w *Writer) EnsureHeader(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	log := logger.FromContext(ctx)

	current, err := w.ws.ReadHeader(ctx)
	switch {
	case errors.Is(err, sheets.ErrRangeUnavailable):
		log.Info().Msg("worksheet is empty, inserting header")
	case err != nil:
		return fmt.Errorf("EnsureHeader: read header: %w: %w", ErrConfiguration, err)
	case slices.Equal(current, domain.Header):
		return nil
	default:
		log.Warn().Strs("found", current).Msg("header row missing or different, inserting header")
	}

	if err := w.ws.InsertHeader(ctx, domain.Header); err != nil {
		return fmt.Errorf("EnsureHeader: insert header: %w: %w", ErrConfiguration, err)
	}
	return nil
}

// Append writes rows in one call with user-entered semantics and returns the
// number of rows written.
func (w *Writer) Append(ctx context.Context, rows []domain.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	n, err := w.ws.AppendRows(ctx, domain.RowsToCells(rows))
	hooks := slices.Clone(w.onAppend)
	w.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("Append: %w", err)
	}
	for _, fn := range hooks {
		fn()
	}
	return n, nil
}
