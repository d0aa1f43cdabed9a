package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/services"
)

// StakingHandler serves the staking endpoints.
type StakingHandler struct {
	Service *services.StakingService
}

func NewStakingHandler(s *services.StakingService) *StakingHandler {
	return &StakingHandler{Service: s}
}

// Stake locks tokens into the property's staking pool.
// POST /properties/{id}/staking/stake
func (h *StakingHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Holder string `json:"holder"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	propertyID := chi.URLParam(r, "id")
	if err := h.Service.Stake(propertyID, req.Holder, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	pos, _ := h.Service.Position(propertyID, req.Holder)
	writeJSON(w, http.StatusOK, pos)
}

// Unstake withdraws principal plus its reward after the lock.
// POST /properties/{id}/staking/unstake
func (h *StakingHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Holder string `json:"holder"`
		Amount int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	propertyID := chi.URLParam(r, "id")
	if err := h.Service.Unstake(propertyID, req.Holder, req.Amount); err != nil {
		writeError(w, err)
		return
	}

	pos, _ := h.Service.Position(propertyID, req.Holder)
	writeJSON(w, http.StatusOK, pos)
}

// Position returns the holder's staking position with its pending reward.
// GET /properties/{id}/staking/{holder}
func (h *StakingHandler) Position(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	holder := chi.URLParam(r, "holder")

	pos, ok := h.Service.Position(propertyID, holder)
	if !ok {
		http.Error(w, "no staking position", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		PropertyID    string `json:"property_id"`
		Holder        string `json:"holder"`
		StakedAmount  int64  `json:"staked_amount"`
		PendingReward int64  `json:"pending_reward"`
	}{
		PropertyID:    propertyID,
		Holder:        holder,
		StakedAmount:  pos.StakedAmount,
		PendingReward: h.Service.PendingReward(propertyID, holder),
	})
}
