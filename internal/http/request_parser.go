package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"splitledger/internal/core"
)

// ParseID parses a positive integer identifier.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid(field, "must be a positive integer")
	}
	return id, nil
}

// ParseIntParam parses an optional integer. Empty input yields def.
func ParseIntParam(field, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Invalid(field, "must be an integer")
	}
	return n, nil
}

// ParseOptionalMonth parses YYYY-MM. Empty input yields nil.
func ParseOptionalMonth(raw string) (*core.Month, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseOptionalDate parses YYYY-MM-DD. Empty input yields nil.
func ParseOptionalDate(raw string) (*core.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseDateRange parses the required from/to pair of an export request.
func ParseDateRange(from, to string) (core.Date, core.Date, error) {
	if strings.TrimSpace(from) == "" {
		return core.Date{}, core.Date{}, core.Invalid("from", "is required")
	}
	if strings.TrimSpace(to) == "" {
		return core.Date{}, core.Date{}, core.Invalid("to", "is required")
	}
	f, err := core.ParseDate(from)
	if err != nil {
		return core.Date{}, core.Date{}, core.Invalid("from", "must be formatted as YYYY-MM-DD")
	}
	t, err := core.ParseDate(to)
	if err != nil {
		return core.Date{}, core.Date{}, core.Invalid("to", "must be formatted as YYYY-MM-DD")
	}
	return f, t, nil
}

func pathID(r *http.Request) (int64, error) {
	return ParseID("id", chi.URLParam(r, "id"))
}

func pathMonth(r *http.Request) (core.Month, error) {
	return core.ParseMonth(chi.URLParam(r, "month"))
}
