package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/storage"
)

// mockOwnershipStore asserts write-through behavior without a real store.
type mockOwnershipStore struct {
	mock.Mock
}

func (m *mockOwnershipStore) SaveOwnership(rec models.OwnershipRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *mockOwnershipStore) LoadOwnership() ([]models.OwnershipRecord, error) {
	args := m.Called()
	return args.Get(0).([]models.OwnershipRecord), args.Error(1)
}

func TestAccreditationDefaultsToFalse(t *testing.T) {
	a := NewAccreditation(storage.NewMemory(), zap.NewNop())
	assert.False(t, a.IsAccredited("nobody"))

	require.NoError(t, a.SetAccredited("alice", true))
	assert.True(t, a.IsAccredited("alice"))

	require.NoError(t, a.SetAccredited("alice", false))
	assert.False(t, a.IsAccredited("alice"))
}

func TestAccreditationSurvivesReload(t *testing.T) {
	store := storage.NewMemory()
	a := NewAccreditation(store, zap.NewNop())
	require.NoError(t, a.SetAccredited("alice", true))

	b := NewAccreditation(store, zap.NewNop())
	require.NoError(t, b.Load())
	assert.True(t, b.IsAccredited("alice"))
}

func TestRolesGrantRevoke(t *testing.T) {
	r := NewRoles(storage.NewMemory())
	assert.False(t, r.Has("alice", RoleAdmin))

	require.NoError(t, r.Grant("alice", RoleAdmin))
	assert.True(t, r.Has("alice", RoleAdmin))
	// No hierarchy: ADMIN does not imply OPERATOR.
	assert.False(t, r.Has("alice", RoleOperator))

	require.NoError(t, r.Revoke("alice", RoleAdmin))
	assert.False(t, r.Has("alice", RoleAdmin))
}

func TestRolesSurviveReload(t *testing.T) {
	store := storage.NewMemory()
	r := NewRoles(store)
	require.NoError(t, r.Grant("alice", RoleExecutor))
	require.NoError(t, r.Grant("alice", RoleOperator))

	fresh := NewRoles(store)
	require.NoError(t, fresh.Load())
	assert.True(t, fresh.Has("alice", RoleExecutor))
	assert.True(t, fresh.Has("alice", RoleOperator))
	assert.False(t, fresh.Has("alice", RoleAdmin))
}

func TestOwnershipWriteThrough(t *testing.T) {
	store := new(mockOwnershipStore)
	store.On("SaveOwnership", mock.AnythingOfType("models.OwnershipRecord")).Return(nil).Once()

	o := NewOwnership(store, 16, zap.NewNop())
	o.NotifyBalanceChanged("alice", "prop-1", 500)

	assert.Equal(t, int64(500), o.BalanceOf("alice", "prop-1"))
	store.AssertExpectations(t)
}

func TestOwnershipStoreFailureIsNotFatal(t *testing.T) {
	store := new(mockOwnershipStore)
	store.On("SaveOwnership", mock.Anything).Return(errors.New("connection reset")).Once()

	o := NewOwnership(store, 16, zap.NewNop())
	o.NotifyBalanceChanged("alice", "prop-1", 500)

	// In-memory state took the update even though persistence failed.
	assert.Equal(t, int64(500), o.BalanceOf("alice", "prop-1"))
	store.AssertExpectations(t)
}

func TestPortfolioAggregatesAndCaches(t *testing.T) {
	store := new(mockOwnershipStore)
	store.On("SaveOwnership", mock.Anything).Return(nil)

	o := NewOwnership(store, 16, zap.NewNop())
	o.NotifyBalanceChanged("alice", "prop-1", 500)
	o.NotifyBalanceChanged("alice", "prop-2", 300)

	p := o.Portfolio("alice")
	assert.Equal(t, int64(800), p.TotalUnits)
	assert.Len(t, p.Holdings, 2)

	// A new write invalidates the cached portfolio.
	o.NotifyBalanceChanged("alice", "prop-1", 100)
	p = o.Portfolio("alice")
	assert.Equal(t, int64(400), p.TotalUnits)
}

func TestOwnershipKeepsZeroBalanceRows(t *testing.T) {
	store := new(mockOwnershipStore)
	store.On("SaveOwnership", mock.Anything).Return(nil)

	o := NewOwnership(store, 16, zap.NewNop())
	o.NotifyBalanceChanged("alice", "prop-1", 500)
	o.NotifyBalanceChanged("alice", "prop-1", 0)

	p := o.Portfolio("alice")
	require.Len(t, p.Holdings, 1)
	assert.Zero(t, p.Holdings[0].Balance)
}
