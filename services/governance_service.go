package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/storage"
)

// proposalCounter names the persisted monotonic proposal-id counter.
const proposalCounter = "governance:next_proposal_id"

// GovernanceConfig carries the platform-wide voting rules. Durations are
// fixed at creation into each proposal's schedule.
type GovernanceConfig struct {
	VotingDelay       time.Duration // creation -> voting start
	VotingPeriod      time.Duration // voting start -> end
	ExecutionDelay    time.Duration // extra wait past end for SALE/REFINANCE
	ExecutionGrace    time.Duration // SUCCEEDED proposals expire after this
	ProposalThreshold int64         // default min balance to propose, token base units
	QuorumBps         int64
	MajorityBps       int64
}

// PropertyRules overrides governance parameters for one property.
type PropertyRules struct {
	ProposalThreshold int64
	QuorumBps         int64
	MajorityBps       int64
}

// GovernanceService runs an independent state machine per proposal:
// PENDING -> ACTIVE -> {SUCCEEDED, DEFEATED} -> {EXECUTED, EXPIRED}.
//
// Voting weight is the voter's ledger balance read at vote time, and the
// quorum is snapshotted from total supply at creation time. Neither uses a
// checkpoint system, which means weight and quorum can be moved by transfers
// or mints in between; that is the original platform's behavior, kept as is.
type GovernanceService struct {
	mu     sync.Mutex
	store  storage.Store
	tokens *ledger.Set
	roles  *registry.Roles
	cfg    GovernanceConfig
	log    *zap.Logger
	now    func() time.Time

	rules          map[string]PropertyRules
	proposals      map[int64]*models.Proposal
	votes          map[int64]map[string]*models.VoteRecord
	nextProposalID int64
}

// NewGovernanceService wires the governance engine.
func NewGovernanceService(store storage.Store, tokens *ledger.Set, roles *registry.Roles,
	cfg GovernanceConfig, log *zap.Logger) *GovernanceService {
	return &GovernanceService{
		store:     store,
		tokens:    tokens,
		roles:     roles,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		rules:     make(map[string]PropertyRules),
		proposals: make(map[int64]*models.Proposal),
		votes:     make(map[int64]map[string]*models.VoteRecord),
	}
}

// Load rehydrates proposals, votes and the id counter from the store.
func (g *GovernanceService) Load() error {
	proposals, err := g.store.AllProposals()
	if err != nil {
		return fmt.Errorf("load proposals: %w", err)
	}
	votes, err := g.store.AllVotes()
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	next, err := g.store.LoadCounter(proposalCounter)
	if err != nil {
		return fmt.Errorf("load proposal counter: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range proposals {
		p := proposals[i]
		g.proposals[p.ID] = &p
	}
	for i := range votes {
		v := votes[i]
		if g.votes[v.ProposalID] == nil {
			g.votes[v.ProposalID] = make(map[string]*models.VoteRecord)
		}
		g.votes[v.ProposalID][v.Voter] = &v
	}
	g.nextProposalID = next
	return nil
}

// SetPropertyRules installs per-property overrides; zero fields fall back to
// the platform defaults.
func (g *GovernanceService) SetPropertyRules(propertyID, caller string, rules PropertyRules) error {
	if !g.roles.Has(caller, registry.RoleAdmin) {
		return ErrUnauthorized
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules[propertyID] = rules
	return nil
}

func (g *GovernanceService) thresholdFor(propertyID string) int64 {
	if r, ok := g.rules[propertyID]; ok && r.ProposalThreshold > 0 {
		return r.ProposalThreshold
	}
	return g.cfg.ProposalThreshold
}

func (g *GovernanceService) quorumBpsFor(propertyID string) int64 {
	if r, ok := g.rules[propertyID]; ok && r.QuorumBps > 0 {
		return r.QuorumBps
	}
	return g.cfg.QuorumBps
}

func (g *GovernanceService) majorityBpsFor(propertyID string) int64 {
	if r, ok := g.rules[propertyID]; ok && r.MajorityBps > 0 {
		return r.MajorityBps
	}
	return g.cfg.MajorityBps
}

// CreateProposal opens a proposal for the property. The quorum is snapshotted
// from the supply as it stands right now.
func (g *GovernanceService) CreateProposal(propertyID, proposer, title, description, docHash string,
	ptype models.ProposalType) (int64, error) {
	tok, ok := g.tokens.Get(propertyID)
	if !ok {
		return 0, ErrPropertyNotFound
	}
	if !ptype.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProposal, ptype)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if tok.BalanceOf(proposer) < g.thresholdFor(propertyID) {
		return 0, ErrInsufficientTokens
	}

	quorum, err := models.MulDiv(tok.TotalSupply(), g.quorumBpsFor(propertyID), models.BpsDenominator)
	if err != nil {
		return 0, fmt.Errorf("compute quorum: %w", err)
	}

	now := g.now()
	g.nextProposalID++
	p := &models.Proposal{
		ID:             g.nextProposalID,
		PropertyID:     propertyID,
		Proposer:       proposer,
		Title:          title,
		Description:    description,
		DocumentHash:   docHash,
		Type:           ptype,
		Status:         models.ProposalPending,
		StartTime:      now.Add(g.cfg.VotingDelay),
		EndTime:        now.Add(g.cfg.VotingDelay + g.cfg.VotingPeriod),
		QuorumRequired: quorum,
		MajorityBps:    g.majorityBpsFor(propertyID),
		CreatedAt:      now,
	}
	g.proposals[p.ID] = p
	g.votes[p.ID] = make(map[string]*models.VoteRecord)

	if err := g.store.SaveCounter(proposalCounter, g.nextProposalID); err != nil {
		g.log.Error("persist proposal counter", zap.Error(err))
	}
	if err := g.store.SaveProposal(*p); err != nil {
		return 0, fmt.Errorf("persist proposal: %w", err)
	}

	g.log.Info("proposal created",
		zap.Int64("proposal_id", p.ID),
		zap.String("property_id", propertyID),
		zap.String("type", string(ptype)),
		zap.Int64("quorum_required", quorum))
	return p.ID, nil
}

// resolve computes the proposal's status at the given time without mutating
// it. The majority bar is strict and measured against all cast votes, so
// abstentions raise what "for" has to clear.
func (g *GovernanceService) resolve(p *models.Proposal, now time.Time) models.ProposalStatus {
	if p.Executed {
		return models.ProposalExecuted
	}
	if now.Before(p.StartTime) {
		return models.ProposalPending
	}
	if !now.After(p.EndTime) {
		return models.ProposalActive
	}
	if p.TotalVotes < p.QuorumRequired {
		return models.ProposalDefeated
	}
	bar, err := models.MulDiv(p.TotalVotes, p.MajorityBps, models.BpsDenominator)
	if err != nil || p.ForVotes <= bar {
		return models.ProposalDefeated
	}
	if now.After(p.EndTime.Add(g.cfg.ExecutionGrace)) {
		return models.ProposalExpired
	}
	return models.ProposalSucceeded
}

// Vote casts the caller's ballot with their current ledger balance as
// weight. One ballot per voter per proposal; the first vote after StartTime
// flips PENDING to ACTIVE.
func (g *GovernanceService) Vote(proposalID int64, voter string, support models.VoteSupport) error {
	if !support.Valid() {
		return ErrInvalidSupport
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	now := g.now()
	if now.Before(p.StartTime) || now.After(p.EndTime) {
		return ErrVotingNotActive
	}
	if _, voted := g.votes[proposalID][voter]; voted {
		return ErrAlreadyVoted
	}

	tok, ok := g.tokens.Get(p.PropertyID)
	if !ok {
		return ErrPropertyNotFound
	}
	weight := tok.BalanceOf(voter)
	if weight <= 0 {
		return ErrUnauthorizedVoter
	}

	rec := &models.VoteRecord{
		ProposalID: proposalID,
		Voter:      voter,
		Support:    support,
		Weight:     weight,
		VotedAt:    now,
	}
	if g.votes[proposalID] == nil {
		g.votes[proposalID] = make(map[string]*models.VoteRecord)
	}
	g.votes[proposalID][voter] = rec

	switch support {
	case models.VoteFor:
		p.ForVotes += weight
	case models.VoteAgainst:
		p.AgainstVotes += weight
	case models.VoteAbstain:
		p.AbstainVotes += weight
	}
	p.TotalVotes += weight
	if p.Status == models.ProposalPending {
		p.Status = models.ProposalActive
	}

	if err := g.store.SaveVote(*rec); err != nil {
		g.log.Error("persist vote", zap.Int64("proposal_id", proposalID), zap.Error(err))
	}
	if err := g.store.SaveProposal(*p); err != nil {
		g.log.Error("persist proposal tallies", zap.Int64("proposal_id", proposalID), zap.Error(err))
	}

	g.log.Info("vote cast",
		zap.Int64("proposal_id", proposalID),
		zap.String("voter", voter),
		zap.Uint8("support", uint8(support)),
		zap.Int64("weight", weight))
	return nil
}

// RefreshStatus resolves and persists the proposal's current status.
func (g *GovernanceService) RefreshStatus(proposalID int64) (models.ProposalStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.proposals[proposalID]
	if !ok {
		return "", ErrProposalNotFound
	}
	status := g.resolve(p, g.now())
	if status != p.Status {
		p.Status = status
		if err := g.store.SaveProposal(*p); err != nil {
			g.log.Error("persist proposal status", zap.Int64("proposal_id", proposalID), zap.Error(err))
		}
	}
	return status, nil
}

// ExecuteProposal marks a SUCCEEDED proposal executed. SALE and REFINANCE
// proposals must additionally wait out the execution delay past EndTime; a
// SUCCEEDED proposal left unexecuted beyond the grace window has expired and
// can never execute.
func (g *GovernanceService) ExecuteProposal(proposalID int64, caller string) error {
	if !g.roles.Has(caller, registry.RoleExecutor) {
		return ErrUnauthorized
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if p.Executed {
		return ErrAlreadyExecuted
	}
	now := g.now()
	if !now.After(p.EndTime) {
		return ErrProposalNotPassed
	}

	switch status := g.resolve(p, now); status {
	case models.ProposalSucceeded:
		// fall through to the delay check
	case models.ProposalExpired:
		p.Status = models.ProposalExpired
		if err := g.store.SaveProposal(*p); err != nil {
			g.log.Error("persist proposal status", zap.Int64("proposal_id", proposalID), zap.Error(err))
		}
		return ErrProposalExpired
	default:
		p.Status = status
		if err := g.store.SaveProposal(*p); err != nil {
			g.log.Error("persist proposal status", zap.Int64("proposal_id", proposalID), zap.Error(err))
		}
		return ErrProposalNotPassed
	}

	if p.Type.RequiresExecutionDelay() && now.Before(p.EndTime.Add(g.cfg.ExecutionDelay)) {
		return ErrExecutionTooEarly
	}

	p.Executed = true
	p.Status = models.ProposalExecuted
	p.ExecutionTime = now
	if err := g.store.SaveProposal(*p); err != nil {
		return fmt.Errorf("persist executed proposal: %w", err)
	}

	g.log.Info("proposal executed",
		zap.Int64("proposal_id", proposalID),
		zap.String("property_id", p.PropertyID),
		zap.String("executor", caller))
	return nil
}

// GetProposal returns a copy of the proposal with its status resolved at
// read time.
func (g *GovernanceService) GetProposal(proposalID int64) (models.Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return models.Proposal{}, ErrProposalNotFound
	}
	out := *p
	out.Status = g.resolve(p, g.now())
	return out, nil
}

// GetVotes returns the proposal's tallies.
func (g *GovernanceService) GetVotes(proposalID int64) (forVotes, againstVotes, abstainVotes, totalVotes int64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[proposalID]
	if !ok {
		return 0, 0, 0, 0, ErrProposalNotFound
	}
	return p.ForVotes, p.AgainstVotes, p.AbstainVotes, p.TotalVotes, nil
}

// GetVoterRecord returns the voter's ballot, if cast.
func (g *GovernanceService) GetVoterRecord(proposalID int64, voter string) (models.VoteRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.votes[proposalID][voter]
	if !ok {
		return models.VoteRecord{}, false
	}
	return *rec, true
}

// ProposalsByProperty lists copies of the property's proposals with resolved
// statuses.
func (g *GovernanceService) ProposalsByProperty(propertyID string) []models.Proposal {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	var out []models.Proposal
	for _, p := range g.proposals {
		if p.PropertyID != propertyID {
			continue
		}
		cp := *p
		cp.Status = g.resolve(p, now)
		out = append(out, cp)
	}
	return out
}
