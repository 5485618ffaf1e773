package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"splitledger/internal/services"
)

// exportCSV serves GET /export.csv?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	from, to, err := ParseDateRange(qs.Get("from"), qs.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	n, err := h.svc.Export.ExportCSV(r.Context(), owner(r), from, to, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="ledger-%s-%s.csv"`, from, to))
	w.Header().Set("X-Row-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handlers) exportSheet(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, to, err := ParseDateRange(req.From, req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rng, n, err := h.svc.Export.ExportToSheet(r.Context(), owner(r), from, to)
	if errors.Is(err, services.ErrSheetNotConfigured) {
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Range: rng, Rows: n})
}
