package services

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/storage"
)

// RevenueService distributes rental income pro rata. Each distribution adds
// amount * PRECISION / totalSupply to a per-property accumulator; a claim
// computes the holder's lifetime entitlement and pays out the delta over the
// last checkpoint, so each rate increment is claimable exactly once.
type RevenueService struct {
	mu        sync.Mutex
	store     storage.Store
	tokens    *ledger.Set
	payment   ledger.Ledger
	staking   *StakingService
	roles     *registry.Roles
	log       *zap.Logger
	now       func() time.Time

	accumulators map[string]*models.RevenueAccumulator
	checkpoints  map[string]map[string]*models.ClaimCheckpoint // propertyID -> holder
}

// NewRevenueService wires the revenue engine.
func NewRevenueService(store storage.Store, tokens *ledger.Set, payment ledger.Ledger,
	staking *StakingService, roles *registry.Roles, log *zap.Logger) *RevenueService {
	return &RevenueService{
		store:        store,
		tokens:       tokens,
		payment:      payment,
		staking:      staking,
		roles:        roles,
		log:          log,
		now:          time.Now,
		accumulators: make(map[string]*models.RevenueAccumulator),
		checkpoints:  make(map[string]map[string]*models.ClaimCheckpoint),
	}
}

// Load rehydrates accumulators and checkpoints from the store.
func (r *RevenueService) Load() error {
	accs, err := r.store.AllRevenueAccumulators()
	if err != nil {
		return fmt.Errorf("load revenue accumulators: %w", err)
	}
	cps, err := r.store.AllClaimCheckpoints()
	if err != nil {
		return fmt.Errorf("load claim checkpoints: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range accs {
		r.accumulators[a.PropertyID] = a
	}
	for i := range cps {
		c := cps[i]
		if r.checkpoints[c.PropertyID] == nil {
			r.checkpoints[c.PropertyID] = make(map[string]*models.ClaimCheckpoint)
		}
		r.checkpoints[c.PropertyID][c.Holder] = &c
	}
	return nil
}

// Distribute pulls amount payment base units from the caller and raises the
// property's revenue-per-token rate. A distribution into zero total supply
// is a silent no-op: no state change, no funds pulled. That skip mirrors the
// original platform's behavior and is logged rather than fixed.
func (r *RevenueService) Distribute(propertyID, caller string, amount int64) error {
	if !r.roles.Has(caller, registry.RoleRevenueManager) {
		return ErrUnauthorized
	}
	tok, ok := r.tokens.Get(propertyID)
	if !ok {
		return ErrPropertyNotFound
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	supply := tok.TotalSupply()
	if supply == 0 {
		r.log.Warn("revenue distribution into zero supply skipped",
			zap.String("property_id", propertyID),
			zap.Int64("amount", amount))
		return nil
	}
	if r.payment.BalanceOf(caller) < amount {
		return ErrInsufficientPayment
	}

	acc, ok := r.accumulators[propertyID]
	if !ok {
		acc = models.NewRevenueAccumulator(propertyID)
		r.accumulators[propertyID] = acc
	}

	delta := new(big.Int).Mul(big.NewInt(amount), models.RevenuePrecision)
	delta.Quo(delta, big.NewInt(supply))
	acc.CumulativePerToken.Add(acc.CumulativePerToken, delta)
	acc.TotalReceived += amount
	acc.LastDistribution = r.now()

	if err := r.payment.Transfer(caller, CustodyAccount, amount); err != nil {
		// Undo the rate bump; the funds never arrived.
		acc.CumulativePerToken.Sub(acc.CumulativePerToken, delta)
		acc.TotalReceived -= amount
		return fmt.Errorf("pull revenue: %w", err)
	}

	if err := r.store.SaveRevenueAccumulator(acc); err != nil {
		r.log.Error("persist revenue accumulator", zap.String("property_id", propertyID), zap.Error(err))
	}

	r.log.Info("revenue distributed",
		zap.String("property_id", propertyID),
		zap.Int64("amount", amount),
		zap.Int64("supply", supply))
	return nil
}

// entitledBalance counts liquid plus staked holdings.
func (r *RevenueService) entitledBalance(propertyID, holder string, tok ledger.Ledger) int64 {
	return tok.BalanceOf(holder) + r.staking.StakedOf(propertyID, holder)
}

// Claim pays out everything the holder is owed beyond their checkpoint.
// Claiming twice without an intervening distribution fails.
func (r *RevenueService) Claim(propertyID, holder string) (int64, error) {
	tok, ok := r.tokens.Get(propertyID)
	if !ok {
		return 0, ErrPropertyNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accumulators[propertyID]
	if !ok {
		return 0, ErrNoRewardsAvailable
	}

	owed := acc.Owed(r.entitledBalance(propertyID, holder, tok))
	if r.checkpoints[propertyID] == nil {
		r.checkpoints[propertyID] = make(map[string]*models.ClaimCheckpoint)
	}
	cp, ok := r.checkpoints[propertyID][holder]
	if !ok {
		cp = &models.ClaimCheckpoint{PropertyID: propertyID, Holder: holder}
		r.checkpoints[propertyID][holder] = cp
	}
	if owed <= cp.TotalClaimed {
		return 0, ErrNoRewardsAvailable
	}
	payout := owed - cp.TotalClaimed

	if err := r.payment.Transfer(CustodyAccount, holder, payout); err != nil {
		return 0, fmt.Errorf("pay claim: %w", err)
	}
	cp.TotalClaimed = owed
	cp.LastClaim = r.now()

	if err := r.store.SaveClaimCheckpoint(*cp); err != nil {
		r.log.Error("persist claim checkpoint", zap.String("holder", holder), zap.Error(err))
	}

	r.log.Info("revenue claimed",
		zap.String("property_id", propertyID),
		zap.String("holder", holder),
		zap.Int64("payout", payout))
	return payout, nil
}

// Claimable returns what Claim would pay out right now.
func (r *RevenueService) Claimable(propertyID, holder string) int64 {
	tok, ok := r.tokens.Get(propertyID)
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accumulators[propertyID]
	if !ok {
		return 0
	}
	owed := acc.Owed(r.entitledBalance(propertyID, holder, tok))
	var claimed int64
	if cp, ok := r.checkpoints[propertyID][holder]; ok {
		claimed = cp.TotalClaimed
	}
	if owed <= claimed {
		return 0
	}
	return owed - claimed
}

// AccumulatorInfo returns the property's distribution totals.
func (r *RevenueService) AccumulatorInfo(propertyID string) (totalReceived int64, lastDistribution time.Time, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, found := r.accumulators[propertyID]
	if !found {
		return 0, time.Time{}, false
	}
	return acc.TotalReceived, acc.LastDistribution, true
}
