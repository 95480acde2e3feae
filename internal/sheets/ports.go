package sheets

import (
	"context"
	"errors"
)

var (
	// ErrRangeUnavailable means row 1 cannot be read because the worksheet is
	// empty or the range lies outside the grid. Callers treat it as "no header".
	ErrRangeUnavailable = errors.New("range unavailable")
	// ErrWorksheetNotFound means the configured worksheet tab does not exist.
	ErrWorksheetNotFound = errors.New("worksheet not found")
)

// Worksheet is the spreadsheet tab that stores one row per line item.
type Worksheet interface {
	// ReadHeader returns the cells of row 1 as strings.
	ReadHeader(ctx context.Context) ([]string, error)
	// InsertHeader inserts header as a new row 1, shifting existing rows down.
	InsertHeader(ctx context.Context, header []string) error
	// AppendRows appends rows after the last data row with user-entered semantics
	// and returns the number of rows written.
	AppendRows(ctx context.Context, rows [][]any) (int, error)
	// ReadAll returns every row of the worksheet, header included.
	ReadAll(ctx context.Context) ([][]any, error)
}
