package http

import (
	"context"
	"net/http"

	"splitledger/internal/core"
)

// upcomingDefaultDays is the lookahead used when ?days= is omitted.
const upcomingDefaultDays = 30

func (h *handlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.Recurring.Templates(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenses(templates))
}

func (h *handlers) upcoming(w http.ResponseWriter, r *http.Request) {
	days, err := ParseIntParam("days", r.URL.Query().Get("days"), upcomingDefaultDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.svc.Recurring.Upcoming(r.Context(), owner(r), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]upcomingResponse, 0, len(items))
	for _, u := range items {
		out = append(out, upcomingResponse{Template: toExpense(u.Template), DaysUntilDue: u.DaysUntilDue})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req generateRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	on, err := ParseOptionalDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	instance, template, err := h.svc.Recurring.Generate(r.Context(), owner(r), id, on)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, generateResponse{Expense: toExpense(instance), Template: toExpense(template)})
}

func (h *handlers) pause(w http.ResponseWriter, r *http.Request) {
	h.templateAction(w, r, h.svc.Recurring.Pause)
}

func (h *handlers) resume(w http.ResponseWriter, r *http.Request) {
	h.templateAction(w, r, h.svc.Recurring.Resume)
}

func (h *handlers) skip(w http.ResponseWriter, r *http.Request) {
	h.templateAction(w, r, h.svc.Recurring.Skip)
}

func (h *handlers) templateAction(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, ownerID string, id int64) (core.Expense, error),
) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := op(r.Context(), owner(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpense(e))
}
