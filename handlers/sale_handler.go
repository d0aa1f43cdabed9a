package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/services"
)

// SaleHandler serves the primary sale endpoints.
type SaleHandler struct {
	Service *services.SaleService
}

func NewSaleHandler(s *services.SaleService) *SaleHandler {
	return &SaleHandler{Service: s}
}

// ConfigureSale opens or replaces the property's primary offering.
// PUT /properties/{id}/sale
func (h *SaleHandler) ConfigureSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller        string    `json:"caller"`
		PricePerToken int64     `json:"price_per_token"`
		MinPurchase   int64     `json:"min_purchase"`
		MaxPurchase   int64     `json:"max_purchase"`
		MaxSupply     int64     `json:"max_supply"`
		SaleEndTime   time.Time `json:"sale_end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	propertyID := chi.URLParam(r, "id")
	err := h.Service.ConfigureSale(propertyID, req.Caller, req.PricePerToken,
		req.MinPurchase, req.MaxPurchase, req.MaxSupply, req.SaleEndTime)
	if err != nil {
		writeError(w, err)
		return
	}

	sale, err := h.Service.SaleInfo(propertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// DeactivateSale ends the offering.
// DELETE /properties/{id}/sale
func (h *SaleHandler) DeactivateSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.DeactivateSale(chi.URLParam(r, "id"), req.Caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purchase buys tokens from the offering.
// POST /properties/{id}/sale/purchase
func (h *SaleHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Buyer  string `json:"buyer"`
		Amount int64  `json:"amount"` // token base units
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	propertyID := chi.URLParam(r, "id")
	if err := h.Service.Purchase(propertyID, req.Buyer, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	sale, err := h.Service.SaleInfo(propertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// SaleInfo returns the offering's current state.
// GET /properties/{id}/sale
func (h *SaleHandler) SaleInfo(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Service.SaleInfo(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
