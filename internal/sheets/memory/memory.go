package memory

import (
	"context"
	"sync"

	ports "github.com/dvloznov/receipt-ledger/internal/sheets"
)

// Worksheet is an in-memory worksheet used for local runs and tests.
type Worksheet struct {
	mu        sync.Mutex
	rows      [][]any
	writes    int
	appendErr error
}

var _ ports.Worksheet = (*Worksheet)(nil)

// New returns a worksheet pre-filled with rows (header included, if any).
func New(rows ...[]any) *Worksheet {
	s := &Worksheet{}
	for _, r := range rows {
		s.rows = append(s.rows, append([]any(nil), r...))
	}
	return s
}

func (s *Worksheet) ReadHeader(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(s.rows[0]))
	for _, v := range s.rows[0] {
		str, _ := v.(string)
		out = append(out, str)
	}
	return out, nil
}

func (s *Worksheet) InsertHeader(_ context.Context, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	s.rows = append([][]any{row}, s.rows...)
	s.writes++
	return nil
}

func (s *Worksheet) AppendRows(_ context.Context, rows [][]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, r := range rows {
		s.rows = append(s.rows, append([]any(nil), r...))
	}
	s.writes++
	return len(rows), nil
}

func (s *Worksheet) ReadAll(_ context.Context) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

// Writes returns the number of mutating calls served so far.
func (s *Worksheet) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// FailAppends makes every following AppendRows call return err. Pass nil to recover.
func (s *Worksheet) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendErr = err
}
