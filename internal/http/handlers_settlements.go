package http

import (
	"net/http"

	"splitledger/internal/core"
)

func (h *handlers) getSplitConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.SplitConfig.Get(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSplitConfig(cfg))
}

func (h *handlers) updateSplitConfig(w http.ResponseWriter, r *http.Request) {
	var req splitConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	self, err := core.ParsePercent("selfPercent", string(req.SelfPercent))
	if err != nil {
		writeError(w, r, err)
		return
	}
	partner, err := core.ParsePercent("partnerPercent", string(req.PartnerPercent))
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := h.svc.SplitConfig.Update(r.Context(), owner(r), self, partner, req.DefaultCurrency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSplitConfig(cfg))
}

func (h *handlers) settlementSummary(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.svc.Settlements.Summary(r.Context(), owner(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummary(summary))
}

func (h *handlers) markSettled(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req settleRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.svc.Settlements.MarkSettled(r.Context(), owner(r), month, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlement(s))
}

func (h *handlers) unmarkSettled(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Settlements.UnmarkSettled(r.Context(), owner(r), month); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) unsettledMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.svc.Settlements.UnsettledMonths(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]string, 0, len(months))
	for _, m := range months {
		out = append(out, m.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"months": out})
}

func (h *handlers) listSettlements(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Settlements.List(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]settlementResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSettlement(s))
	}
	writeJSON(w, http.StatusOK, out)
}
