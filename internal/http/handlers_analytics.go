package http

import (
	"net/http"
	"sort"

	"splitledger/internal/core"
)

// defaultMonthsBack is the analytics window when ?months= is omitted.
const defaultMonthsBack = 6

// monthOrCurrent reads ?month=, defaulting to the current UTC month.
func (h *handlers) monthOrCurrent(r *http.Request) (core.Month, error) {
	m, err := ParseOptionalMonth(r.URL.Query().Get("month"))
	if err != nil {
		return core.Month{}, err
	}
	if m == nil {
		return core.MonthOf(h.now()), nil
	}
	return *m, nil
}

func (h *handlers) monthlyTrend(w http.ResponseWriter, r *http.Request) {
	n, err := ParseIntParam("months", r.URL.Query().Get("months"), defaultMonthsBack)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := h.svc.Analytics.MonthlyTrend(r.Context(), owner(r), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]monthTotalsResponse, 0, len(trend))
	for _, mt := range trend {
		out = append(out, monthTotalsResponse{Month: mt.Month.String(), Totals: toTotals(mt.Totals)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) categorySpending(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthOrCurrent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	spend, err := h.svc.Analytics.CategorySpending(r.Context(), owner(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categorySpendResponse, 0, len(spend))
	for id, cs := range spend {
		out = append(out, categorySpendResponse{
			CategoryID: id,
			Name:       cs.Name,
			Spent:      core.FormatAmount(cs.Spent),
			Budget:     formatOptional(cs.Budget),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) insights(w http.ResponseWriter, r *http.Request) {
	n, err := ParseIntParam("months", r.URL.Query().Get("months"), defaultMonthsBack)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.svc.Analytics.SpendingInsights(r.Context(), owner(r), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInsights(in))
}
