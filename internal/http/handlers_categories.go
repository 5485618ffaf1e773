package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/services"
)

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Categories.List(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCategory(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := parseBudget(req.MonthlyBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.Create(r.Context(), owner(r), services.CategoryInput{
		Name:          req.Name,
		Color:         req.Color,
		MonthlyBudget: budget,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(c))
}

func (h *handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.Get(r.Context(), owner(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.Update(r.Context(), owner(r), id, services.CategoryPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Categories.Delete(r.Context(), owner(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setBudget serves PUT /categories/{id}/budget. A null monthlyBudget clears it.
func (h *handlers) setBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.MonthlyBudget.Set {
		writeError(w, r, core.Invalid("monthlyBudget", "is required (use null to clear)"))
		return
	}
	budget, err := parseBudget(req.MonthlyBudget.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Categories.SetBudget(r.Context(), owner(r), id, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(c))
}

func (h *handlers) categoryBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthOrCurrent(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.Categories.CategoriesWithBudgets(r.Context(), owner(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryBudgetResponse, 0, len(list))
	for _, cb := range list {
		out = append(out, categoryBudgetResponse{
			Category: toCategory(cb.Category),
			Spent:    core.FormatAmount(cb.Spent),
			Budget:   formatOptional(cb.Budget),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// parseBudget parses a budget amount. Zero is allowed, unlike expense amounts.
func parseBudget(a *amountText) (*decimal.Decimal, error) {
	if a == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(*a)))
	if err != nil {
		return nil, core.Invalid("monthlyBudget", "must be a decimal number")
	}
	d = core.RoundMoney(d)
	return &d, nil
}
