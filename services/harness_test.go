package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/storage"
)

const (
	testProperty = "prop-beacon-st-12"
	admin        = "user:admin"
	operator     = "user:operator"
	revenueMgr   = "user:revenue"
	executor     = "user:executor"
	alice        = "user:alice"
	bob          = "user:bob"
	carol        = "user:carol"
	treasury     = "platform:treasury"
)

// env wires every engine against the in-memory store and a manual clock.
type env struct {
	t     *testing.T
	clock time.Time

	store         *storage.Memory
	tokens        *ledger.Set
	payment       *ledger.Memory
	accreditation *registry.Accreditation
	roles         *registry.Roles
	ownership     *registry.Ownership

	sale        *SaleService
	marketplace *MarketplaceService
	staking     *StakingService
	revenue     *RevenueService
	governance  *GovernanceService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemory()

	e := &env{
		t:             t,
		clock:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		store:         store,
		tokens:        ledger.NewSet(),
		payment:       ledger.NewMemory("USDP"),
		accreditation: registry.NewAccreditation(store, log),
		roles:         registry.NewRoles(store),
		ownership:     registry.NewOwnership(store, 64, log),
	}
	now := func() time.Time { return e.clock }

	e.tokens.Add(testProperty, ledger.NewMemory("BCN12"))

	e.sale = NewSaleService(store, e.tokens, e.payment, e.accreditation, e.ownership, e.roles, nil, log)
	e.sale.now = now
	e.marketplace = NewMarketplaceService(store, e.tokens, e.payment, e.ownership, 250, treasury, log)
	e.marketplace.now = now
	e.staking = NewStakingService(store, e.tokens, e.ownership, StakingConfig{
		RewardRateBps:   500,
		FeeBps:          100,
		MinLockDuration: 30 * 24 * time.Hour,
		FeeCollector:    treasury,
	}, log)
	e.staking.now = now
	e.revenue = NewRevenueService(store, e.tokens, e.payment, e.staking, e.roles, log)
	e.revenue.now = now
	e.governance = NewGovernanceService(store, e.tokens, e.roles, GovernanceConfig{
		VotingDelay:       24 * time.Hour,
		VotingPeriod:      7 * 24 * time.Hour,
		ExecutionDelay:    48 * time.Hour,
		ExecutionGrace:    30 * 24 * time.Hour,
		ProposalThreshold: 100 * 1_000_000,
		QuorumBps:         1_000,
		MajorityBps:       5_000,
	}, log)
	e.governance.now = now

	for user, role := range map[string]registry.Role{
		admin:      registry.RoleAdmin,
		operator:   registry.RoleOperator,
		revenueMgr: registry.RoleRevenueManager,
		executor:   registry.RoleExecutor,
	} {
		if err := e.roles.Grant(user, role); err != nil {
			t.Fatalf("grant %s: %v", role, err)
		}
	}
	return e
}

func (e *env) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *env) token() ledger.Ledger {
	tok, _ := e.tokens.Get(testProperty)
	return tok
}

// fund gives the user payment balance and accreditation.
func (e *env) fund(user string, amount int64) {
	e.t.Helper()
	if err := e.payment.Mint(user, amount); err != nil {
		e.t.Fatalf("fund %s: %v", user, err)
	}
	if err := e.accreditation.SetAccredited(user, true); err != nil {
		e.t.Fatalf("accredit %s: %v", user, err)
	}
}

// mintTokens issues property tokens directly, bypassing the sale.
func (e *env) mintTokens(user string, amount int64) {
	e.t.Helper()
	if err := e.token().Mint(user, amount); err != nil {
		e.t.Fatalf("mint tokens for %s: %v", user, err)
	}
}
