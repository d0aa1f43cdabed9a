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

const secondsPerYear = 365 * 24 * 60 * 60

// StakingConfig carries the fixed staking terms.
type StakingConfig struct {
	RewardRateBps   int64         // simple APY, basis points
	FeeBps          int64         // skimmed off reward at unstake
	MinLockDuration time.Duration // measured from the last stake
	FeeCollector    string
}

// StakingService locks property tokens in custody and accrues a linear,
// non-compounding reward. Reward payouts are newly minted supply, not drawn
// from a pool; stakers keep their revenue-share entitlement through
// StakedOf.
//
// Restaking settles the pending reward and then resets the lock clock for
// the entire position, not just the new increment.
type StakingService struct {
	mu        sync.Mutex
	store     storage.Store
	tokens    *ledger.Set
	ownership *registry.Ownership
	cfg       StakingConfig
	log       *zap.Logger
	now       func() time.Time

	positions map[string]map[string]*models.StakingPosition // propertyID -> holder
}

// NewStakingService wires the staking engine.
func NewStakingService(store storage.Store, tokens *ledger.Set, ownership *registry.Ownership,
	cfg StakingConfig, log *zap.Logger) *StakingService {
	return &StakingService{
		store:     store,
		tokens:    tokens,
		ownership: ownership,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		positions: make(map[string]map[string]*models.StakingPosition),
	}
}

// Load rehydrates positions from the store.
func (s *StakingService) Load() error {
	positions, err := s.store.AllStakingPositions()
	if err != nil {
		return fmt.Errorf("load staking positions: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range positions {
		p := positions[i]
		if s.positions[p.PropertyID] == nil {
			s.positions[p.PropertyID] = make(map[string]*models.StakingPosition)
		}
		s.positions[p.PropertyID][p.Holder] = &p
	}
	return nil
}

// accrued computes the reward earned since the position's last checkpoint:
// staked * rateBps/10000 * elapsed/secondsPerYear.
func (s *StakingService) accrued(p *models.StakingPosition, now time.Time) int64 {
	if p.StakedAmount <= 0 {
		return 0
	}
	elapsed := int64(now.Sub(p.LastCheckpoint) / time.Second)
	if elapsed <= 0 {
		return 0
	}
	base, err := models.MulDiv(p.StakedAmount, s.cfg.RewardRateBps, models.BpsDenominator)
	if err != nil {
		s.log.Error("reward overflow", zap.String("holder", p.Holder), zap.Error(err))
		return 0
	}
	reward, err := models.MulDiv(base, elapsed, secondsPerYear)
	if err != nil {
		s.log.Error("reward overflow", zap.String("holder", p.Holder), zap.Error(err))
		return 0
	}
	return reward
}

// Stake locks amount token base units. An existing position first settles its
// pending reward into the accumulator; the lock and checkpoint clocks both
// restart at now.
func (s *StakingService) Stake(propertyID, holder string, amount int64) error {
	tok, ok := s.tokens.Get(propertyID)
	if !ok {
		return ErrPropertyNotFound
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if tok.BalanceOf(holder) < amount {
		return ErrInsufficientBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.positions[propertyID] == nil {
		s.positions[propertyID] = make(map[string]*models.StakingPosition)
	}
	pos, ok := s.positions[propertyID][holder]
	if !ok {
		pos = &models.StakingPosition{PropertyID: propertyID, Holder: holder}
		s.positions[propertyID][holder] = pos
	} else {
		pos.AccumulatedReward += s.accrued(pos, now)
	}

	if err := tok.Transfer(holder, CustodyAccount, amount); err != nil {
		return fmt.Errorf("move stake into custody: %w", err)
	}
	pos.StakedAmount += amount
	pos.StakeStartTime = now
	pos.LastCheckpoint = now

	if err := s.store.SaveStakingPosition(*pos); err != nil {
		s.log.Error("persist staking position", zap.String("holder", holder), zap.Error(err))
	}
	s.ownership.NotifyBalanceChanged(holder, propertyID, tok.BalanceOf(holder)+pos.StakedAmount)

	s.log.Info("stake added",
		zap.String("property_id", propertyID),
		zap.String("holder", holder),
		zap.Int64("amount", amount),
		zap.Int64("staked_total", pos.StakedAmount))
	return nil
}

// Unstake returns amount principal and settles the pending reward, minus the
// staking fee. Reward and fee are freshly minted.
func (s *StakingService) Unstake(propertyID, holder string, amount int64) error {
	tok, ok := s.tokens.Get(propertyID)
	if !ok {
		return ErrPropertyNotFound
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.positions[propertyID][holder]
	if !ok || amount > pos.StakedAmount {
		return ErrInsufficientStake
	}
	now := s.now()
	if now.Before(pos.StakeStartTime.Add(s.cfg.MinLockDuration)) {
		return ErrLockNotExpired
	}

	reward := pos.AccumulatedReward + s.accrued(pos, now)
	fee, err := models.MulDiv(reward, s.cfg.FeeBps, models.BpsDenominator)
	if err != nil {
		return fmt.Errorf("compute staking fee: %w", err)
	}
	netReward := reward - fee

	if err := tok.Transfer(CustodyAccount, holder, amount); err != nil {
		return fmt.Errorf("return principal: %w", err)
	}
	if netReward > 0 {
		if err := tok.Mint(holder, netReward); err != nil {
			return fmt.Errorf("mint reward: %w", err)
		}
	}
	if fee > 0 {
		if err := tok.Mint(s.cfg.FeeCollector, fee); err != nil {
			return fmt.Errorf("mint fee: %w", err)
		}
	}

	pos.StakedAmount -= amount
	pos.AccumulatedReward = 0
	pos.LastCheckpoint = now

	if err := s.store.SaveStakingPosition(*pos); err != nil {
		s.log.Error("persist staking position", zap.String("holder", holder), zap.Error(err))
	}
	s.ownership.NotifyBalanceChanged(holder, propertyID, tok.BalanceOf(holder)+pos.StakedAmount)

	s.log.Info("unstaked",
		zap.String("property_id", propertyID),
		zap.String("holder", holder),
		zap.Int64("amount", amount),
		zap.Int64("net_reward", netReward),
		zap.Int64("fee", fee))
	return nil
}

// PendingReward returns the holder's settled plus accrued-but-unsettled
// reward.
func (s *StakingService) PendingReward(propertyID, holder string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[propertyID][holder]
	if !ok {
		return 0
	}
	return pos.AccumulatedReward + s.accrued(pos, s.now())
}

// StakedOf returns the holder's locked amount; the revenue engine counts it
// toward entitlement exactly like liquid balance.
func (s *StakingService) StakedOf(propertyID, holder string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[propertyID][holder]
	if !ok {
		return 0
	}
	return pos.StakedAmount
}

// Position returns a copy of the holder's position.
func (s *StakingService) Position(propertyID, holder string) (models.StakingPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[propertyID][holder]
	if !ok {
		return models.StakingPosition{}, false
	}
	return *pos, true
}
