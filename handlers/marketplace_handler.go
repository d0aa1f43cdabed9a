package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/services"
)

// MarketplaceHandler serves the secondary market endpoints.
type MarketplaceHandler struct {
	Service *services.MarketplaceService
}

func NewMarketplaceHandler(s *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{Service: s}
}

func listingID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// CreateListing puts tokens up for sale.
// POST /marketplace/listings
func (h *MarketplaceHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID    string `json:"property_id"`
		Seller        string `json:"seller"`
		Amount        int64  `json:"amount"`
		PricePerToken int64  `json:"price_per_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.Service.List(req.PropertyID, req.Seller, req.Amount, req.PricePerToken)
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.Service.GetListing(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// FillListing buys some or all of a listing.
// POST /marketplace/listings/{id}/fill
func (h *MarketplaceHandler) FillListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		http.Error(w, "invalid listing id", http.StatusBadRequest)
		return
	}

	var req struct {
		Buyer  string `json:"buyer"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Fill(id, req.Buyer, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	listing, err := h.Service.GetListing(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// CancelListing withdraws a listing; seller only.
// POST /marketplace/listings/{id}/cancel
func (h *MarketplaceHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		http.Error(w, "invalid listing id", http.StatusBadRequest)
		return
	}

	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Cancel(id, req.Caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetListing returns one listing.
// GET /marketplace/listings/{id}
func (h *MarketplaceHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := listingID(r)
	if err != nil {
		http.Error(w, "invalid listing id", http.StatusBadRequest)
		return
	}

	listing, err := h.Service.GetListing(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// ActiveListings returns the property's open listings.
// GET /marketplace/listings?property_id=...
func (h *MarketplaceHandler) ActiveListings(w http.ResponseWriter, r *http.Request) {
	propertyID := r.URL.Query().Get("property_id")
	if propertyID == "" {
		http.Error(w, "property_id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.ActiveListings(propertyID))
}
