package storage

import (
	"math/big"
	"strconv"
	"sync"

	"github.com/propshare/propshare/models"
)

// Memory is the map-backed Store driver used by tests and local mode. Keys
// mirror the SQL primary keys.
type Memory struct {
	mu             sync.RWMutex
	properties     map[string]models.Property
	sales          map[string]models.Sale
	listings       map[int64]models.Listing
	positions      map[string]models.StakingPosition // propertyID|holder
	accumulators   map[string]*models.RevenueAccumulator
	checkpoints    map[string]models.ClaimCheckpoint // propertyID|holder
	proposals      map[int64]models.Proposal
	votes          map[string]models.VoteRecord // proposalID|voter
	accreditations map[string]bool
	roles          map[string]map[string]bool
	ownership      map[string]models.OwnershipRecord // user|propertyID
	counters       map[string]int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		properties:     make(map[string]models.Property),
		sales:          make(map[string]models.Sale),
		listings:       make(map[int64]models.Listing),
		positions:      make(map[string]models.StakingPosition),
		accumulators:   make(map[string]*models.RevenueAccumulator),
		checkpoints:    make(map[string]models.ClaimCheckpoint),
		proposals:      make(map[int64]models.Proposal),
		votes:          make(map[string]models.VoteRecord),
		accreditations: make(map[string]bool),
		roles:          make(map[string]map[string]bool),
		ownership:      make(map[string]models.OwnershipRecord),
		counters:       make(map[string]int64),
	}
}

func pairKey(a, b string) string { return a + "|" + b }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func (m *Memory) SaveProperty(p models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
	return nil
}

func (m *Memory) GetProperty(id string) (models.Property, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	return p, ok, nil
}

func (m *Memory) ListProperties() ([]models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Property, 0, len(m.properties))
	for _, p := range m.properties {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) SaveSale(s models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[s.PropertyID] = s
	return nil
}

func (m *Memory) AllSales() ([]models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) SaveListing(l models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

func (m *Memory) AllListings() ([]models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *Memory) SaveStakingPosition(p models.StakingPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pairKey(p.PropertyID, p.Holder)] = p
	return nil
}

func (m *Memory) AllStakingPositions() ([]models.StakingPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.StakingPosition, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) SaveRevenueAccumulator(a *models.RevenueAccumulator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	cp.CumulativePerToken = new(big.Int).Set(a.CumulativePerToken)
	m.accumulators[a.PropertyID] = &cp
	return nil
}

func (m *Memory) AllRevenueAccumulators() ([]*models.RevenueAccumulator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.RevenueAccumulator, 0, len(m.accumulators))
	for _, a := range m.accumulators {
		cp := *a
		cp.CumulativePerToken = new(big.Int).Set(a.CumulativePerToken)
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) SaveClaimCheckpoint(c models.ClaimCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[pairKey(c.PropertyID, c.Holder)] = c
	return nil
}

func (m *Memory) AllClaimCheckpoints() ([]models.ClaimCheckpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ClaimCheckpoint, 0, len(m.checkpoints))
	for _, c := range m.checkpoints {
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) SaveProposal(p models.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ID] = p
	return nil
}

func (m *Memory) AllProposals() ([]models.Proposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) SaveVote(v models.VoteRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[pairKey(formatID(v.ProposalID), v.Voter)] = v
	return nil
}

func (m *Memory) AllVotes() ([]models.VoteRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.VoteRecord, 0, len(m.votes))
	for _, v := range m.votes {
		out = append(out, v)
	}
	return out, nil
}

func (m *Memory) SaveAccreditation(user string, accredited bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accreditations[user] = accredited
	return nil
}

func (m *Memory) LoadAccreditations() (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.accreditations))
	for k, v := range m.accreditations {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveRole(user, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[user] == nil {
		m.roles[user] = make(map[string]bool)
	}
	m.roles[user][role] = true
	return nil
}

func (m *Memory) RemoveRole(user, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles[user], role)
	return nil
}

func (m *Memory) LoadRoles() (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.roles))
	for user, roles := range m.roles {
		for role := range roles {
			out[user] = append(out[user], role)
		}
	}
	return out, nil
}

func (m *Memory) SaveOwnership(rec models.OwnershipRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownership[pairKey(rec.User, rec.PropertyID)] = rec
	return nil
}

func (m *Memory) LoadOwnership() ([]models.OwnershipRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.OwnershipRecord, 0, len(m.ownership))
	for _, rec := range m.ownership {
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) SaveCounter(name string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = value
	return nil
}

func (m *Memory) LoadCounter(name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name], nil
}

func (m *Memory) Close() error { return nil }
