package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/services"
)

// PropertyHandler serves the property registry endpoints.
type PropertyHandler struct {
	Service *services.PropertyService
}

func NewPropertyHandler(s *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{Service: s}
}

// RegisterProperty creates a property and its token ledger.
// POST /properties
func (h *PropertyHandler) RegisterProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string `json:"caller"`
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Address     string `json:"address"`
		TotalValue  int64  `json:"total_value"`
		MintAddress string `json:"mint_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prop, err := h.Service.RegisterProperty(req.Caller, req.Name, req.Symbol, req.Address, req.TotalValue, req.MintAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, prop)
}

// GetProperty returns one property.
// GET /properties/{id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	prop, err := h.Service.GetProperty(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// ListProperties returns all properties.
// GET /properties
func (h *PropertyHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.ListProperties())
}
