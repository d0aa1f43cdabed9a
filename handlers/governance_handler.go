package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/services"
)

// GovernanceHandler serves the proposal and voting endpoints.
type GovernanceHandler struct {
	Service *services.GovernanceService
}

func NewGovernanceHandler(s *services.GovernanceService) *GovernanceHandler {
	return &GovernanceHandler{Service: s}
}

func proposalID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// CreateProposal opens a proposal for a property.
// POST /governance/proposals
func (h *GovernanceHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID   string `json:"property_id"`
		Proposer     string `json:"proposer"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		DocumentHash string `json:"document_hash"`
		Type         string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.Service.CreateProposal(req.PropertyID, req.Proposer, req.Title,
		req.Description, req.DocumentHash, models.ProposalType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.Service.GetProposal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Vote casts the caller's ballot.
// POST /governance/proposals/{id}/votes
func (h *GovernanceHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	var req struct {
		Voter   string `json:"voter"`
		Support uint8  `json:"support"` // 0 against, 1 for, 2 abstain
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Vote(id, req.Voter, models.VoteSupport(req.Support)); err != nil {
		writeError(w, err)
		return
	}

	rec, _ := h.Service.GetVoterRecord(id, req.Voter)
	writeJSON(w, http.StatusOK, rec)
}

// Execute marks a succeeded proposal as executed.
// POST /governance/proposals/{id}/execute
func (h *GovernanceHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.ExecuteProposal(id, req.Caller); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.Service.GetProposal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Refresh recomputes and persists the proposal's status from the clock.
// POST /governance/proposals/{id}/refresh
func (h *GovernanceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	status, err := h.Service.RefreshStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ProposalID int64                 `json:"proposal_id"`
		Status     models.ProposalStatus `json:"status"`
	}{id, status})
}

// GetProposal returns one proposal with its status resolved at read time.
// GET /governance/proposals/{id}
func (h *GovernanceHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	p, err := h.Service.GetProposal(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetVotes returns a proposal's tallies, plus one voter's ballot when the
// voter query parameter is set.
// GET /governance/proposals/{id}/votes?voter=...
func (h *GovernanceHandler) GetVotes(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}

	forVotes, againstVotes, abstainVotes, totalVotes, err := h.Service.GetVotes(id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		ForVotes     int64              `json:"for_votes"`
		AgainstVotes int64              `json:"against_votes"`
		AbstainVotes int64              `json:"abstain_votes"`
		TotalVotes   int64              `json:"total_votes"`
		VoterRecord  *models.VoteRecord `json:"voter_record,omitempty"`
	}{forVotes, againstVotes, abstainVotes, totalVotes, nil}

	if voter := r.URL.Query().Get("voter"); voter != "" {
		if rec, ok := h.Service.GetVoterRecord(id, voter); ok {
			resp.VoterRecord = &rec
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListByProperty returns all of a property's proposals.
// GET /governance/proposals?property_id=...
func (h *GovernanceHandler) ListByProperty(w http.ResponseWriter, r *http.Request) {
	propertyID := r.URL.Query().Get("property_id")
	if propertyID == "" {
		http.Error(w, "property_id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.ProposalsByProperty(propertyID))
}
