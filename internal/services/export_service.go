package services

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/sheets"
)

// ExportHeader is the first row of every export.
var ExportHeader = []string{"Date", "Description", "Amount", "Category", "Paid From", "Notes", "Recurring"}

// DefaultExportSpan is the widest date range an export accepts by default.
const DefaultExportSpan = 2 * 366 * 24 * time.Hour

// ExportService renders a date range of the ledger as CSV or appends it to
// a spreadsheet.
type ExportService struct {
	deps    Deps
	maxSpan time.Duration
	sheet   sheets.RowAppender
}

// NewExportService builds the exporter. sheet may be nil when no
// spreadsheet is configured.
func NewExportService(deps Deps, maxSpan time.Duration, sheet sheets.RowAppender) *ExportService {
	if maxSpan <= 0 {
		maxSpan = DefaultExportSpan
	}
	return &ExportService{deps: deps, maxSpan: maxSpan, sheet: sheet}
}

func (s *ExportService) validateRange(from, to core.Date) error {
	if err := from.Validate(); err != nil {
		return core.Invalid("from", "is required")
	}
	if err := to.Validate(); err != nil {
		return core.Invalid("to", "is required")
	}
	if to.Before(from.Time) {
		return core.Invalid("to", "must not be before from")
	}
	if to.Sub(from.Time) > s.maxSpan {
		return core.Invalid("to", "range must not exceed %d days", int(s.maxSpan.Hours()/24))
	}
	return nil
}

// Rows returns the header followed by one row per expense in [from, to],
// oldest first. Values are plain, unquoted text.
func (s *ExportService) Rows(ctx context.Context, ownerID string, from, to core.Date) ([][]string, error) {
	if err := s.validateRange(from, to); err != nil {
		return nil, err
	}
	q := s.deps.Store.Queries()
	expenses, err := q.ListExpensesBetween(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	categories, err := q.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rows := make([][]string, 0, len(expenses)+1)
	rows = append(rows, ExportHeader)
	for _, e := range expenses {
		category := ""
		if e.CategoryID != nil {
			category = names[*e.CategoryID]
		}
		recurring := "No"
		if e.IsRecurring {
			recurring = "Yes"
		}
		rows = append(rows, []string{
			e.Date.String(),
			e.Description,
			core.FormatAmount(e.Amount),
			category,
			string(e.PaidFrom),
			e.Notes,
			recurring,
		})
	}
	return rows, nil
}

// ExportCSV writes the range as CSV. Description is always quoted, notes are
// quoted when present, and embedded quotes are doubled.
func (s *ExportService) ExportCSV(ctx context.Context, ownerID string, from, to core.Date, w io.Writer) (int, error) {
	rows, err := s.Rows(ctx, ownerID, from, to)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(ExportHeader, ",") + "\n")
	for _, r := range rows[1:] {
		fields := []string{
			r[0],
			quote(r[1]),
			r[2],
			quoteIfNeeded(r[3]),
			r[4],
			"",
			r[6],
		}
		if r[5] != "" {
			fields[5] = quote(r[5])
		}
		bw.WriteString(strings.Join(fields, ",") + "\n")
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Ledger exported as CSV",
		log.FieldOwnerID, ownerID,
		log.FieldCount, len(rows)-1,
		"from", from.String(),
		"to", to.String())
	return len(rows) - 1, nil
}

// ErrSheetNotConfigured is returned by ExportToSheet when no sheet is wired.
var ErrSheetNotConfigured = errors.New("sheet export is not configured")

// ExportToSheet appends the range, header included, to the configured sheet.
func (s *ExportService) ExportToSheet(ctx context.Context, ownerID string, from, to core.Date) (string, int, error) {
	if s.sheet == nil {
		return "", 0, ErrSheetNotConfigured
	}
	rows, err := s.Rows(ctx, ownerID, from, to)
	if err != nil {
		return "", 0, err
	}
	rng, err := s.sheet.AppendRows(ctx, rows)
	if err != nil {
		return "", 0, err
	}

	slog.InfoContext(ctx, "Ledger exported to sheet",
		log.FieldOwnerID, ownerID,
		log.FieldCount, len(rows)-1,
		"range", rng)
	return rng, len(rows) - 1, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
