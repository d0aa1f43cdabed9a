package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/propshare/propshare/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service sentinels onto HTTP statuses; anything
// unrecognized is a 500.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotAccredited),
		errors.Is(err, services.ErrNotSeller),
		errors.Is(err, services.ErrUnauthorizedVoter):
		return http.StatusForbidden
	case errors.Is(err, services.ErrPropertyNotFound),
		errors.Is(err, services.ErrListingNotFound),
		errors.Is(err, services.ErrProposalNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrPurchaseTooLow),
		errors.Is(err, services.ErrPurchaseTooHigh),
		errors.Is(err, services.ErrInvalidSupport),
		errors.Is(err, services.ErrInvalidProposal):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSaleNotActive),
		errors.Is(err, services.ErrListingNotActive),
		errors.Is(err, services.ErrAmountExceedsOffer),
		errors.Is(err, services.ErrLockNotExpired),
		errors.Is(err, services.ErrVotingNotActive),
		errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrAlreadyExecuted),
		errors.Is(err, services.ErrProposalNotPassed),
		errors.Is(err, services.ErrProposalExpired),
		errors.Is(err, services.ErrExecutionTooEarly),
		errors.Is(err, services.ErrSettlementFailed):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientPayment),
		errors.Is(err, services.ErrInsufficientStake),
		errors.Is(err, services.ErrInsufficientTokens),
		errors.Is(err, services.ErrNoRewardsAvailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
