package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/services"
)

// RevenueHandler serves the revenue distribution endpoints.
type RevenueHandler struct {
	Service *services.RevenueService
}

func NewRevenueHandler(s *services.RevenueService) *RevenueHandler {
	return &RevenueHandler{Service: s}
}

// Distribute spreads a rental payment across all current holders.
// POST /properties/{id}/revenue/distribute
func (h *RevenueHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"` // payment base units
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Distribute(chi.URLParam(r, "id"), req.Caller, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Claim pays out the caller's unclaimed share.
// POST /properties/{id}/revenue/claim
func (h *RevenueHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Holder string `json:"holder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	paid, err := h.Service.Claim(chi.URLParam(r, "id"), req.Holder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Paid int64 `json:"paid"`
	}{Paid: paid})
}

// Claimable returns what a holder could claim right now.
// GET /properties/{id}/revenue/claimable/{holder}
func (h *RevenueHandler) Claimable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Claimable int64 `json:"claimable"`
	}{Claimable: h.Service.Claimable(chi.URLParam(r, "id"), chi.URLParam(r, "holder"))})
}

// Accumulator returns distribution totals for the property.
// GET /properties/{id}/revenue
func (h *RevenueHandler) Accumulator(w http.ResponseWriter, r *http.Request) {
	total, last, ok := h.Service.AccumulatorInfo(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "no distributions yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TotalReceived    int64  `json:"total_received"`
		LastDistribution string `json:"last_distribution"`
	}{TotalReceived: total, LastDistribution: last.UTC().Format(time.RFC3339)})
}
