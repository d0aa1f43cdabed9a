package storage

import "github.com/propshare/propshare/models"

// Store is the persistence boundary for every entity the engines own. Engines
// keep authoritative state in memory, write through on every mutation, and
// rehydrate from the All*/Load* methods at boot.
//
// Two drivers exist: DB (Postgres via sqlx) and Memory (tests and local mode).
type Store interface {
	SaveProperty(p models.Property) error
	GetProperty(id string) (models.Property, bool, error)
	ListProperties() ([]models.Property, error)

	SaveSale(s models.Sale) error
	AllSales() ([]models.Sale, error)

	SaveListing(l models.Listing) error
	AllListings() ([]models.Listing, error)

	SaveStakingPosition(p models.StakingPosition) error
	AllStakingPositions() ([]models.StakingPosition, error)

	SaveRevenueAccumulator(a *models.RevenueAccumulator) error
	AllRevenueAccumulators() ([]*models.RevenueAccumulator, error)
	SaveClaimCheckpoint(c models.ClaimCheckpoint) error
	AllClaimCheckpoints() ([]models.ClaimCheckpoint, error)

	SaveProposal(p models.Proposal) error
	AllProposals() ([]models.Proposal, error)
	SaveVote(v models.VoteRecord) error
	AllVotes() ([]models.VoteRecord, error)

	SaveAccreditation(user string, accredited bool) error
	LoadAccreditations() (map[string]bool, error)

	SaveRole(user, role string) error
	RemoveRole(user, role string) error
	LoadRoles() (map[string][]string, error)

	SaveOwnership(rec models.OwnershipRecord) error
	LoadOwnership() ([]models.OwnershipRecord, error)

	SaveCounter(name string, value int64) error
	LoadCounter(name string) (int64, error)

	Close() error
}
