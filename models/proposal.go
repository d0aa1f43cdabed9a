package models

import "time"

// ProposalType classifies what a governance proposal asks for. SALE and
// REFINANCE proposals carry an extra execution delay.
type ProposalType string

const (
	ProposalTypeMaintenance ProposalType = "MAINTENANCE"
	ProposalTypeImprovement ProposalType = "IMPROVEMENT"
	ProposalTypeRefinance   ProposalType = "REFINANCE"
	ProposalTypeSale        ProposalType = "SALE"
	ProposalTypeManagement  ProposalType = "MANAGEMENT"
	ProposalTypeDividend    ProposalType = "DIVIDEND"
	ProposalTypeOther       ProposalType = "OTHER"
)

// Valid reports whether t is one of the defined proposal types.
func (t ProposalType) Valid() bool {
	switch t {
	case ProposalTypeMaintenance, ProposalTypeImprovement, ProposalTypeRefinance,
		ProposalTypeSale, ProposalTypeManagement, ProposalTypeDividend, ProposalTypeOther:
		return true
	}
	return false
}

// RequiresExecutionDelay reports whether execution must wait an extra fixed
// delay past the voting deadline.
func (t ProposalType) RequiresExecutionDelay() bool {
	return t == ProposalTypeSale || t == ProposalTypeRefinance
}

// ProposalStatus is the proposal lifecycle:
// PENDING -> ACTIVE -> {SUCCEEDED, DEFEATED} -> {EXECUTED, EXPIRED}.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "PENDING"
	ProposalActive    ProposalStatus = "ACTIVE"
	ProposalSucceeded ProposalStatus = "SUCCEEDED"
	ProposalDefeated  ProposalStatus = "DEFEATED"
	ProposalExecuted  ProposalStatus = "EXECUTED"
	ProposalExpired   ProposalStatus = "EXPIRED"
)

// VoteSupport encodes a ballot: 0 against, 1 for, 2 abstain.
type VoteSupport uint8

const (
	VoteAgainst VoteSupport = 0
	VoteFor     VoteSupport = 1
	VoteAbstain VoteSupport = 2
)

// Valid reports whether s is one of the three ballot values.
func (s VoteSupport) Valid() bool {
	return s <= VoteAbstain
}

// Proposal is one per-property governance question. Quorum and majority are
// snapshotted at creation and never recomputed against a later supply.
type Proposal struct {
	ID           int64          `json:"id" db:"id"`
	PropertyID   string         `json:"property_id" db:"property_id"`
	Proposer     string         `json:"proposer" db:"proposer"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	DocumentHash string         `json:"document_hash" db:"document_hash"`
	Type         ProposalType   `json:"type" db:"type"`
	Status       ProposalStatus `json:"status" db:"status"`

	ForVotes     int64 `json:"for_votes" db:"for_votes"`
	AgainstVotes int64 `json:"against_votes" db:"against_votes"`
	AbstainVotes int64 `json:"abstain_votes" db:"abstain_votes"`
	TotalVotes   int64 `json:"total_votes" db:"total_votes"`

	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	ExecutionTime time.Time `json:"execution_time" db:"execution_time"` // zero until executed

	QuorumRequired int64 `json:"quorum_required" db:"quorum_required"` // absolute token base units
	MajorityBps    int64 `json:"majority_bps" db:"majority_bps"`
	Executed       bool  `json:"executed" db:"executed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VoteRecord is one cast ballot; its presence means the voter has voted.
type VoteRecord struct {
	ProposalID int64       `json:"proposal_id" db:"proposal_id"`
	Voter      string      `json:"voter" db:"voter"`
	Support    VoteSupport `json:"support" db:"support"`
	Weight     int64       `json:"weight" db:"weight"`
	VotedAt    time.Time   `json:"voted_at" db:"voted_at"`
}

// OwnershipRecord is one row of the portfolio aggregator: a holder's last
// known balance (liquid plus staked) for one property.
type OwnershipRecord struct {
	User       string    `json:"user" db:"user_id"`
	PropertyID string    `json:"property_id" db:"property_id"`
	Balance    int64     `json:"balance" db:"balance"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
