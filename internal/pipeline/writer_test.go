package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/sheets"
	"github.com/dvloznov/receipt-ledger/internal/sheets/memory"
)

// mockWorksheet is a mock implementation of sheets.Worksheet for testing.
type mockWorksheet struct {
	ReadHeaderFunc   func(ctx context.Context) ([]string, error)
	InsertHeaderFunc func(ctx context.Context, header []string) error
	AppendRowsFunc   func(ctx context.Context, rows [][]any) (int, error)
	ReadAllFunc      func(ctx context.Context) ([][]any, error)
}

func (m *mockWorksheet) ReadHeader(ctx context.Context) ([]string, error) {
	return m.ReadHeaderFunc(ctx)
}

func (m *mockWorksheet) InsertHeader(ctx context.Context, header []string) error {
	return m.InsertHeaderFunc(ctx, header)
}

func (m *mockWorksheet) AppendRows(ctx context.Context, rows [][]any) (int, error) {
	return m.AppendRowsFunc(ctx, rows)
}

func (m *mockWorksheet) ReadAll(ctx context.Context) ([][]any, error) {
	return m.ReadAllFunc(ctx)
}

func headerCells() []any {
	out := make([]any, len(domain.Header))
	for i, h := range domain.Header {
		out[i] = h
	}
	return out
}

func TestWriter_EnsureHeaderIdempotent(t *testing.T) {
	ctx := context.Background()
	ws := memory.New()
	w := NewWriter(ws)

	if err := w.EnsureHeader(ctx); err != nil {
		t.Fatalf("first EnsureHeader: %v", err)
	}
	if ws.Writes() != 1 {
		t.Fatalf("writes after first call = %d, want 1", ws.Writes())
	}

	if err := w.EnsureHeader(ctx); err != nil {
		t.Fatalf("second EnsureHeader: %v", err)
	}
	if ws.Writes() != 1 {
		t.Errorf("second call performed %d writes, want 0", ws.Writes()-1)
	}
}

func TestWriter_EnsureHeaderMatchingHeaderNoWrite(t *testing.T) {
	ws := memory.New(headerCells())
	if err := NewWriter(ws).EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if ws.Writes() != 0 {
		t.Errorf("writes = %d, want 0", ws.Writes())
	}
}

func TestWriter_EnsureHeaderWrongHeaderInserted(t *testing.T) {
	ctx := context.Background()
	ws := memory.New([]any{"Date", "Shop"}, []any{"2024-01-01", "X"})

	if err := NewWriter(ws).EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	rows, _ := ws.ReadAll(ctx)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (header inserted above existing rows)", len(rows))
	}
	if rows[0][0] != "Timestamp Added" || rows[1][0] != "Date" {
		t.Errorf("row order = %v, %v", rows[0][0], rows[1][0])
	}
}

func TestWriter_EnsureHeaderRangeUnavailable(t *testing.T) {
	inserted := false
	ws := &mockWorksheet{
		ReadHeaderFunc: func(ctx context.Context) ([]string, error) {
			return nil, fmt.Errorf("read header: %w", sheets.ErrRangeUnavailable)
		},
		InsertHeaderFunc: func(ctx context.Context, header []string) error {
			inserted = true
			return nil
		},
	}
	if err := NewWriter(ws).EnsureHeader(context.Background()); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if !inserted {
		t.Error("header was not inserted into empty worksheet")
	}
}

func TestWriter_EnsureHeaderConfigurationErrors(t *testing.T) {
	denied := errors.New("permission denied")
	tests := []struct {
		name string
		ws   *mockWorksheet
	}{
		{
			name: "read fails",
			ws: &mockWorksheet{
				ReadHeaderFunc: func(ctx context.Context) ([]string, error) { return nil, denied },
			},
		},
		{
			name: "insert fails",
			ws: &mockWorksheet{
				ReadHeaderFunc:   func(ctx context.Context) ([]string, error) { return nil, nil },
				InsertHeaderFunc: func(ctx context.Context, header []string) error { return denied },
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWriter(tt.ws).EnsureHeader(context.Background())
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
			if !errors.Is(err, denied) {
				t.Errorf("err = %v, want cause preserved", err)
			}
		})
	}
}

func TestWriter_Append(t *testing.T) {
	ctx := context.Background()
	ws := memory.New(headerCells())
	w := NewWriter(ws)

	notified := 0
	w.OnAppend(func() { notified++ })

	n, err := w.Append(ctx, nil)
	if err != nil || n != 0 {
		t.Fatalf("Append(nil) = %d, %v", n, err)
	}
	if ws.Writes() != 0 || notified != 0 {
		t.Errorf("empty append wrote %d times, notified %d", ws.Writes(), notified)
	}

	rows := []domain.Row{{ItemDescription: "A"}, {ItemDescription: "B"}}
	n, err = w.Append(ctx, rows)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 || ws.Writes() != 1 || notified != 1 {
		t.Errorf("n = %d, writes = %d, notified = %d; want 2, 1, 1", n, ws.Writes(), notified)
	}

	all, _ := ws.ReadAll(ctx)
	if len(all) != 3 || all[2][8] != "B" {
		t.Errorf("stored rows = %v", all)
	}
}

func TestWriter_AppendFailureDoesNotNotify(t *testing.T) {
	ws := memory.New()
	ws.FailAppends(errors.New("quota"))
	w := NewWriter(ws)
	notified := false
	w.OnAppend(func() { notified = true })

	if _, err := w.Append(context.Background(), []domain.Row{{}}); err == nil {
		t.Fatal("expected append error")
	}
	if notified {
		t.Error("hook must not run after a failed append")
	}
}
