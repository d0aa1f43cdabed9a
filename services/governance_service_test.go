package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propshare/propshare/models"
)

// openProposal creates a proposal and advances past the voting delay.
func openProposal(t *testing.T, e *env, ptype models.ProposalType) int64 {
	t.Helper()
	id, err := e.governance.CreateProposal(testProperty, alice, "Roof repair",
		"Replace the roof membrane", "bafy-doc-hash", ptype)
	require.NoError(t, err)
	e.advance(24*time.Hour + time.Minute)
	return id
}

func TestCreateProposalRequiresThreshold(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 99*models.TokenScale) // threshold is 100 whole tokens

	_, err := e.governance.CreateProposal(testProperty, alice, "t", "d", "", models.ProposalTypeMaintenance)
	assert.ErrorIs(t, err, ErrInsufficientTokens)

	e.mintTokens(alice, 1*models.TokenScale)
	_, err = e.governance.CreateProposal(testProperty, alice, "t", "d", "", models.ProposalTypeMaintenance)
	assert.NoError(t, err)
}

func TestCreateProposalSnapshotsQuorum(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)

	id, err := e.governance.CreateProposal(testProperty, alice, "t", "d", "", models.ProposalTypeMaintenance)
	require.NoError(t, err)

	p, err := e.governance.GetProposal(id)
	require.NoError(t, err)
	// 10% of the 1000-token supply at creation.
	assert.Equal(t, int64(100*models.TokenScale), p.QuorumRequired)
	assert.Equal(t, models.ProposalPending, p.Status)

	// Later mints do not move the snapshot.
	e.mintTokens(bob, 9000*models.TokenScale)
	p, err = e.governance.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, int64(100*models.TokenScale), p.QuorumRequired)
}

func TestVoteWindow(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id, err := e.governance.CreateProposal(testProperty, alice, "t", "d", "", models.ProposalTypeMaintenance)
	require.NoError(t, err)

	// Still pending: the voting delay has not elapsed.
	assert.ErrorIs(t, e.governance.Vote(id, alice, models.VoteFor), ErrVotingNotActive)

	e.advance(25 * time.Hour)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))

	e.advance(8 * 24 * time.Hour)
	assert.ErrorIs(t, e.governance.Vote(id, bob, models.VoteFor), ErrVotingNotActive)
}

func TestVoteOncePerVoter(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)

	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))
	assert.ErrorIs(t, e.governance.Vote(id, alice, models.VoteAgainst), ErrAlreadyVoted)
}

func TestVoteRequiresBalance(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)

	assert.ErrorIs(t, e.governance.Vote(id, bob, models.VoteFor), ErrUnauthorizedVoter)
	assert.ErrorIs(t, e.governance.Vote(id, alice, models.VoteSupport(7)), ErrInvalidSupport)
}

func TestVoteWeightIsCurrentBalance(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	e.mintTokens(bob, 300*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)

	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))
	require.NoError(t, e.governance.Vote(id, bob, models.VoteAgainst))

	forVotes, againstVotes, _, totalVotes, err := e.governance.GetVotes(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000*models.TokenScale), forVotes)
	assert.Equal(t, int64(300*models.TokenScale), againstVotes)
	assert.Equal(t, int64(1300*models.TokenScale), totalVotes)

	rec, ok := e.governance.GetVoterRecord(id, bob)
	require.True(t, ok)
	assert.Equal(t, models.VoteAgainst, rec.Support)
	assert.Equal(t, int64(300*models.TokenScale), rec.Weight)
}

func TestStrictMajorityBoundary(t *testing.T) {
	for name, tc := range map[string]struct {
		forTokens int64
		succeeds  bool
	}{
		"exactly half is defeat": {50, false},
		"one over half passes":   {51, true},
	} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			e.mintTokens(alice, tc.forTokens*models.TokenScale)
			e.mintTokens(bob, (100-tc.forTokens)*models.TokenScale)
			// alice needs the threshold to propose.
			e.mintTokens(carol, 100*models.TokenScale)

			id, err := e.governance.CreateProposal(testProperty, carol, "t", "d", "", models.ProposalTypeMaintenance)
			require.NoError(t, err)
			e.advance(25 * time.Hour)

			require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))
			require.NoError(t, e.governance.Vote(id, bob, models.VoteAgainst))
			e.advance(8 * 24 * time.Hour)

			status, err := e.governance.RefreshStatus(id)
			require.NoError(t, err)
			if tc.succeeds {
				assert.Equal(t, models.ProposalSucceeded, status)
			} else {
				assert.Equal(t, models.ProposalDefeated, status)
			}
		})
	}
}

func TestAbstainRaisesTheBar(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 40*models.TokenScale)
	e.mintTokens(bob, 20*models.TokenScale)
	e.mintTokens(carol, 140*models.TokenScale)

	id, err := e.governance.CreateProposal(testProperty, carol, "t", "d", "", models.ProposalTypeMaintenance)
	require.NoError(t, err)
	e.advance(25 * time.Hour)

	// for=40 of total=60 passes without abstentions, but carol's abstention
	// pushes the total to 200 and 40 is no longer a strict majority.
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))
	require.NoError(t, e.governance.Vote(id, bob, models.VoteAgainst))
	require.NoError(t, e.governance.Vote(id, carol, models.VoteAbstain))
	e.advance(8 * 24 * time.Hour)

	status, err := e.governance.RefreshStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalDefeated, status)
}

func TestQuorumDefeat(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 100*models.TokenScale)
	e.mintTokens(bob, 9900*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)

	// Quorum is 1000 tokens; only 100 vote.
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))
	e.advance(8 * 24 * time.Hour)

	status, err := e.governance.RefreshStatus(id)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalDefeated, status)
}

func TestExecuteLifecycle(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))

	// Voting still open.
	assert.ErrorIs(t, e.governance.ExecuteProposal(id, executor), ErrProposalNotPassed)
	// Wrong role.
	assert.ErrorIs(t, e.governance.ExecuteProposal(id, alice), ErrUnauthorized)

	e.advance(8 * 24 * time.Hour)
	require.NoError(t, e.governance.ExecuteProposal(id, executor))

	p, err := e.governance.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalExecuted, p.Status)
	assert.True(t, p.Executed)

	assert.ErrorIs(t, e.governance.ExecuteProposal(id, executor), ErrAlreadyExecuted)
}

func TestSaleProposalsWaitOutExecutionDelay(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeSale)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))

	// Just past voting end: succeeded but inside the 48h delay.
	e.advance(7*24*time.Hour + time.Hour)
	assert.ErrorIs(t, e.governance.ExecuteProposal(id, executor), ErrExecutionTooEarly)

	e.advance(48 * time.Hour)
	assert.NoError(t, e.governance.ExecuteProposal(id, executor))
}

func TestSucceededProposalExpiresAfterGrace(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))

	e.advance(7*24*time.Hour + 31*24*time.Hour)
	assert.ErrorIs(t, e.governance.ExecuteProposal(id, executor), ErrProposalExpired)

	p, err := e.governance.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalExpired, p.Status)
}

func TestDefeatedProposalCannotExecute(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteAgainst))
	e.advance(8 * 24 * time.Hour)

	assert.ErrorIs(t, e.governance.ExecuteProposal(id, executor), ErrProposalNotPassed)
}

func TestPerPropertyRuleOverrides(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 150*models.TokenScale)
	require.NoError(t, e.governance.SetPropertyRules(testProperty, admin, PropertyRules{
		ProposalThreshold: 200 * models.TokenScale,
	}))

	_, err := e.governance.CreateProposal(testProperty, alice, "t", "d", "", models.ProposalTypeMaintenance)
	assert.ErrorIs(t, err, ErrInsufficientTokens)

	assert.ErrorIs(t, e.governance.SetPropertyRules(testProperty, alice, PropertyRules{}), ErrUnauthorized)
}

func TestProposalsSurviveReload(t *testing.T) {
	e := newEnv(t)
	e.mintTokens(alice, 1000*models.TokenScale)
	id := openProposal(t, e, models.ProposalTypeMaintenance)
	require.NoError(t, e.governance.Vote(id, alice, models.VoteFor))

	reloaded := NewGovernanceService(e.store, e.tokens, e.roles, e.governance.cfg, e.governance.log)
	reloaded.now = e.governance.now
	require.NoError(t, reloaded.Load())

	forVotes, _, _, _, err := reloaded.GetVotes(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000*models.TokenScale), forVotes)

	// The counter keeps moving after reload.
	id2, err := reloaded.CreateProposal(testProperty, alice, "t2", "d", "", models.ProposalTypeMaintenance)
	require.NoError(t, err)
	assert.Greater(t, id2, id)
}
