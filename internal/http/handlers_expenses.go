package http

import (
	"net/http"
	"strings"

	"splitledger/internal/core"
	"splitledger/internal/services"
)

func (r expenseRequest) toNewExpense() (services.NewExpense, error) {
	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return services.NewExpense{}, err
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return services.NewExpense{}, err
	}
	paidFrom, err := core.ParsePaidFrom(r.PaidFrom)
	if err != nil {
		return services.NewExpense{}, err
	}
	freq, err := parseOptionalFrequency(r.Frequency)
	if err != nil {
		return services.NewExpense{}, err
	}
	return services.NewExpense{
		Amount:      amount,
		Description: r.Description,
		Date:        date,
		PaidFrom:    paidFrom,
		CategoryID:  r.CategoryID,
		Notes:       r.Notes,
		Currency:    r.Currency,
		Frequency:   freq,
	}, nil
}

func (r expensePatchRequest) toPatch() (services.ExpensePatch, error) {
	var p services.ExpensePatch
	if r.Amount != nil {
		a, err := core.ParseAmount(string(*r.Amount))
		if err != nil {
			return p, err
		}
		p.Amount = &a
	}
	if r.Date != nil {
		d, err := core.ParseDate(*r.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if r.PaidFrom != nil {
		pf, err := core.ParsePaidFrom(*r.PaidFrom)
		if err != nil {
			return p, err
		}
		p.PaidFrom = &pf
	}
	if r.Frequency != nil {
		f, err := parseOptionalFrequency(*r.Frequency)
		if err != nil {
			return p, err
		}
		p.Frequency = &f
	}
	if r.CategoryID.Set {
		p.CategoryID = r.CategoryID.Value
		p.ClearCategory = r.CategoryID.Value == nil
	}
	p.Description = r.Description
	p.Notes = r.Notes
	p.Currency = r.Currency
	p.IsRecurring = r.IsRecurring
	return p, nil
}

func parseOptionalFrequency(s string) (core.Frequency, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return core.ParseFrequency(s)
}

func (h *handlers) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toNewExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.svc.Expenses.Create(r.Context(), owner(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpense(e))
}

func (h *handlers) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.svc.Expenses.Get(r.Context(), owner(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpense(e))
}

func (h *handlers) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.svc.Expenses.Update(r.Context(), owner(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpense(e))
}

func (h *handlers) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Expenses.Delete(r.Context(), owner(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listExpenses serves GET /expenses?month=&categoryId=&paidFrom=&q=&cursor=&limit=
func (h *handlers) listExpenses(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	month, err := ParseOptionalMonth(qs.Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := ParseIntParam("limit", qs.Get("limit"), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	query := services.ExpenseQuery{
		Month:  month,
		Search: qs.Get("q"),
		Cursor: qs.Get("cursor"),
		Limit:  limit,
	}
	if raw := qs.Get("categoryId"); raw != "" {
		id, err := ParseID("categoryId", raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		query.CategoryID = &id
	}
	if raw := qs.Get("paidFrom"); raw != "" {
		pf, err := core.ParsePaidFrom(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		query.PaidFrom = pf
	}

	page, err := h.svc.Expenses.Query(r.Context(), owner(r), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expensePageResponse{Items: toExpenses(page.Items), NextCursor: page.NextCursor})
}
