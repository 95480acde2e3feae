package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWorksheet_InsertHeaderShiftsRows(t *testing.T) {
	ctx := context.Background()
	ws := New([]any{"2024-01-15", "Shop"})

	if err := ws.InsertHeader(ctx, []string{"Receipt Date", "Store Name"}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}

	got, _ := ws.ReadAll(ctx)
	want := [][]any{{"Receipt Date", "Store Name"}, {"2024-01-15", "Shop"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if ws.Writes() != 1 {
		t.Errorf("writes = %d, want 1", ws.Writes())
	}
}

func TestWorksheet_ReadHeaderEmpty(t *testing.T) {
	header, err := New().ReadHeader(context.Background())
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if len(header) != 0 {
		t.Errorf("header = %v, want empty", header)
	}
}

func TestWorksheet_AppendRows(t *testing.T) {
	ctx := context.Background()
	ws := New()

	n, err := ws.AppendRows(ctx, [][]any{{"a", 1.5}, {"b", ""}})
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	if n != 2 {
		t.Errorf("appended = %d, want 2", n)
	}

	if n, _ := ws.AppendRows(ctx, nil); n != 0 {
		t.Errorf("empty append = %d, want 0", n)
	}
	if ws.Writes() != 1 {
		t.Errorf("writes = %d, want 1 (empty append must not write)", ws.Writes())
	}
}

func TestWorksheet_FailAppends(t *testing.T) {
	ctx := context.Background()
	ws := New()
	boom := errors.New("quota exceeded")
	ws.FailAppends(boom)

	if _, err := ws.AppendRows(ctx, [][]any{{"x"}}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	rows, _ := ws.ReadAll(ctx)
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0 after failed append", len(rows))
	}

	ws.FailAppends(nil)
	if _, err := ws.AppendRows(ctx, [][]any{{"x"}}); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}
