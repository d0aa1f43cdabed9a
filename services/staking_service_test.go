package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propshare/propshare/models"
)

func TestStakeMovesTokensIntoCustody(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)

	require.NoError(t, e.staking.Stake(testProperty, alice, 600*models.TokenScale))

	assert.Equal(t, int64(400*models.TokenScale), e.token().BalanceOf(alice))
	assert.Equal(t, int64(600*models.TokenScale), e.token().BalanceOf(CustodyAccount))
	assert.Equal(t, int64(600*models.TokenScale), e.staking.StakedOf(testProperty, alice))
}

func TestStakeValidation(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 100*models.TokenScale)

	assert.ErrorIs(t, e.staking.Stake(testProperty, alice, 0), ErrInvalidAmount)
	assert.ErrorIs(t, e.staking.Stake(testProperty, alice, 200*models.TokenScale), ErrInsufficientBalance)
	assert.ErrorIs(t, e.staking.Stake("no-such-property", alice, 10), ErrPropertyNotFound)
}

func TestUnstakeBeforeLockExpiry(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	require.NoError(t, e.staking.Stake(testProperty, alice, 1000*models.TokenScale))

	e.advance(29 * 24 * time.Hour)
	assert.ErrorIs(t, e.staking.Unstake(testProperty, alice, 1000*models.TokenScale), ErrLockNotExpired)

	e.advance(2 * 24 * time.Hour)
	assert.NoError(t, e.staking.Unstake(testProperty, alice, 1000*models.TokenScale))
}

func TestUnstakeMoreThanStaked(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	require.NoError(t, e.staking.Stake(testProperty, alice, 500*models.TokenScale))
	e.advance(31 * 24 * time.Hour)

	assert.ErrorIs(t, e.staking.Unstake(testProperty, alice, 600*models.TokenScale), ErrInsufficientStake)
	assert.ErrorIs(t, e.staking.Unstake(testProperty, bob, 1), ErrInsufficientStake)
}

func TestRewardAccruesLinearly(t *testing.T) {
	e := newEnv(t)
	staked := int64(10_000 * models.TokenScale)
	e.mintTokens(alice, staked)
	require.NoError(t, e.staking.Stake(testProperty, alice, staked))

	// 5% APY over exactly one year of seconds.
	e.advance(365 * 24 * time.Hour)
	expected, err := models.MulDiv(staked, 500, models.BpsDenominator)
	require.NoError(t, err)
	assert.Equal(t, expected, e.staking.PendingReward(testProperty, alice))

	// Half a year more accrues half as much again.
	e.advance(365 * 12 * time.Hour)
	assert.Equal(t, expected+expected/2, e.staking.PendingReward(testProperty, alice))
}

func TestRestakeSettlesRewardAndResetsLock(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 2000*models.TokenScale)
	require.NoError(t, e.staking.Stake(testProperty, alice, 1000*models.TokenScale))

	e.advance(40 * 24 * time.Hour)
	pendingBefore := e.staking.PendingReward(testProperty, alice)
	assert.Positive(t, pendingBefore)

	// Restaking folds the pending reward into the position and restarts the
	// lock for the whole balance.
	require.NoError(t, e.staking.Stake(testProperty, alice, 500*models.TokenScale))
	pos, ok := e.staking.Position(testProperty, alice)
	require.True(t, ok)
	assert.Equal(t, pendingBefore, pos.AccumulatedReward)
	assert.Equal(t, int64(1500*models.TokenScale), pos.StakedAmount)

	e.advance(29 * 24 * time.Hour)
	assert.ErrorIs(t, e.staking.Unstake(testProperty, alice, 100*models.TokenScale), ErrLockNotExpired)
}

func TestUnstakePaysMintedRewardMinusFee(t *testing.T) {
	e := newEnv(t)
	staked := int64(10_000 * models.TokenScale)
	e.mintTokens(alice, staked)
	require.NoError(t, e.staking.Stake(testProperty, alice, staked))
	supplyBefore := e.token().TotalSupply()

	e.advance(365 * 24 * time.Hour)
	reward := e.staking.PendingReward(testProperty, alice)
	fee, err := models.MulDiv(reward, 100, models.BpsDenominator)
	require.NoError(t, err)

	require.NoError(t, e.staking.Unstake(testProperty, alice, staked))

	assert.Equal(t, staked+reward-fee, e.token().BalanceOf(alice))
	assert.Equal(t, fee, e.token().BalanceOf(treasury))
	// Reward and fee are new supply; principal is not.
	assert.Equal(t, supplyBefore+reward, e.token().TotalSupply())
	assert.Zero(t, e.staking.StakedOf(testProperty, alice))
	assert.Zero(t, e.staking.PendingReward(testProperty, alice))
}

func TestPartialUnstakeKeepsRemainderStaked(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	require.NoError(t, e.staking.Stake(testProperty, alice, 1000*models.TokenScale))
	e.advance(31 * 24 * time.Hour)

	require.NoError(t, e.staking.Unstake(testProperty, alice, 400*models.TokenScale))
	assert.Equal(t, int64(600*models.TokenScale), e.staking.StakedOf(testProperty, alice))
	// The reward settlement zeroed the accumulator and checkpointed now.
	assert.Zero(t, e.staking.PendingReward(testProperty, alice))
}

func TestPositionsSurviveReload(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	require.NoError(t, e.staking.Stake(testProperty, alice, 700*models.TokenScale))

	reloaded := NewStakingService(e.store, e.tokens, e.ownership, e.staking.cfg, e.staking.log)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, int64(700*models.TokenScale), reloaded.StakedOf(testProperty, alice))
}
