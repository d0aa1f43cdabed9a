package services

import "errors"

// Failure modes are sentinel errors so handlers and callers can branch on
// them. Every operation is all-or-nothing: when one of these comes back, no
// owned state changed.
var (
	// Authorization.
	ErrUnauthorized  = errors.New("caller lacks the required role")
	ErrNotAccredited = errors.New("caller is not accredited")
	ErrNotSeller     = errors.New("only the original seller may cancel")

	// Validation.
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrPurchaseTooLow  = errors.New("purchase amount below minimum")
	ErrPurchaseTooHigh = errors.New("purchase amount above maximum")
	ErrInvalidSupport  = errors.New("vote support must be 0, 1 or 2")
	ErrInvalidProposal = errors.New("unknown proposal type")

	// State conflicts.
	ErrPropertyNotFound   = errors.New("property not found")
	ErrSaleNotActive      = errors.New("sale is not active")
	ErrListingNotFound    = errors.New("listing not found")
	ErrListingNotActive   = errors.New("listing is not active")
	ErrAmountExceedsOffer = errors.New("fill amount exceeds remaining listing amount")
	ErrLockNotExpired     = errors.New("minimum lock duration not met")
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrVotingNotActive    = errors.New("voting is not active for this proposal")
	ErrAlreadyVoted       = errors.New("voter has already voted on this proposal")
	ErrAlreadyExecuted    = errors.New("proposal already executed")
	ErrProposalNotPassed  = errors.New("proposal has not succeeded")
	ErrProposalExpired    = errors.New("proposal execution window has expired")
	ErrExecutionTooEarly  = errors.New("execution delay has not elapsed")

	// Resources.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrInsufficientPayment = errors.New("insufficient payment balance")
	ErrInsufficientStake   = errors.New("insufficient staked balance")
	ErrInsufficientTokens  = errors.New("insufficient tokens to propose")
	ErrUnauthorizedVoter   = errors.New("voter holds no tokens")
	ErrNoRewardsAvailable  = errors.New("no rewards available to claim")
	ErrSettlementFailed    = errors.New("seller allowance or balance no longer covers the fill")
)

// CustodyAccount holds payment and staked tokens on behalf of the engines.
const CustodyAccount = "platform:custody"
