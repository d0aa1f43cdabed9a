package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/services"
)

// RegistryHandler serves accreditation, role and portfolio endpoints. These
// are the platform's admin surface; every mutation checks the caller's role
// here because the registries themselves are policy-free.
type RegistryHandler struct {
	Accreditation *registry.Accreditation
	Roles         *registry.Roles
	Ownership     *registry.Ownership
}

func NewRegistryHandler(a *registry.Accreditation, roles *registry.Roles, o *registry.Ownership) *RegistryHandler {
	return &RegistryHandler{Accreditation: a, Roles: roles, Ownership: o}
}

// SetAccredited flips a user's accreditation flag; admin only.
// PUT /users/{id}/accreditation
func (h *RegistryHandler) SetAccredited(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller     string `json:"caller"`
		Accredited bool   `json:"accredited"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.Roles.Has(req.Caller, registry.RoleAdmin) {
		writeError(w, services.ErrUnauthorized)
		return
	}

	if err := h.Accreditation.SetAccredited(chi.URLParam(r, "id"), req.Accredited); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccreditation reads a user's accreditation flag.
// GET /users/{id}/accreditation
func (h *RegistryHandler) GetAccreditation(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, struct {
		User       string `json:"user"`
		Accredited bool   `json:"accredited"`
	}{User: user, Accredited: h.Accreditation.IsAccredited(user)})
}

// GrantRole grants a role to a user; admin only.
// POST /users/{id}/roles
func (h *RegistryHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.Roles.Has(req.Caller, registry.RoleAdmin) {
		writeError(w, services.ErrUnauthorized)
		return
	}

	if err := h.Roles.Grant(chi.URLParam(r, "id"), registry.Role(req.Role)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole removes a role from a user; admin only.
// DELETE /users/{id}/roles/{role}
func (h *RegistryHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.Roles.Has(req.Caller, registry.RoleAdmin) {
		writeError(w, services.ErrUnauthorized)
		return
	}

	if err := h.Roles.Revoke(chi.URLParam(r, "id"), registry.Role(chi.URLParam(r, "role"))); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Portfolio returns the user's aggregated holdings across properties.
// GET /users/{id}/portfolio
func (h *RegistryHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ownership.Portfolio(chi.URLParam(r, "id")))
}
