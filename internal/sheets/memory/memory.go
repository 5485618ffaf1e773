// Package memory is an in-process RowAppender for tests and local runs
// without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]string
}

func New(name string) *Sheet {
	return &Sheet{name: name}
}

// AppendRows stores copies of rows and returns an A1 range for them.
func (s *Sheet) AppendRows(_ context.Context, rows [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := len(s.rows) + 1
	for _, r := range rows {
		s.rows = append(s.rows, append([]string(nil), r...))
	}
	if len(rows) == 0 {
		return "", nil
	}
	return fmt.Sprintf("%s!A%d:G%d", s.name, first, len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
