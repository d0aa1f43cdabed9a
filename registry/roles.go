package registry

import (
	"fmt"
	"sync"
)

// Role is a platform capability. Authorization is a table lookup, not a
// hierarchy: holding ADMIN does not imply the others except where Grant gave
// it explicitly.
type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleOperator           Role = "OPERATOR"
	RoleRevenueManager     Role = "REVENUE_MANAGER"
	RoleMarketplaceManager Role = "MARKETPLACE_MANAGER"
	RoleExecutor           Role = "EXECUTOR"
)

// RoleStore persists the capability table.
type RoleStore interface {
	SaveRole(user, role string) error
	RemoveRole(user, role string) error
	LoadRoles() (map[string][]string, error)
}

// Roles is the capability table consulted by every restricted operation.
type Roles struct {
	mu    sync.RWMutex
	store RoleStore
	table map[string]map[Role]bool
}

// NewRoles returns an empty table.
func NewRoles(store RoleStore) *Roles {
	return &Roles{store: store, table: make(map[string]map[Role]bool)}
}

// Load rehydrates the table from the store.
func (r *Roles) Load() error {
	rows, err := r.store.LoadRoles()
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	table := make(map[string]map[Role]bool, len(rows))
	for user, roles := range rows {
		table[user] = make(map[Role]bool, len(roles))
		for _, role := range roles {
			table[user][Role(role)] = true
		}
	}
	r.mu.Lock()
	r.table = table
	r.mu.Unlock()
	return nil
}

// Grant gives the user the capability.
func (r *Roles) Grant(user string, role Role) error {
	r.mu.Lock()
	if r.table[user] == nil {
		r.table[user] = make(map[Role]bool)
	}
	r.table[user][role] = true
	r.mu.Unlock()
	if err := r.store.SaveRole(user, string(role)); err != nil {
		return fmt.Errorf("persist role grant: %w", err)
	}
	return nil
}

// Revoke removes the capability from the user.
func (r *Roles) Revoke(user string, role Role) error {
	r.mu.Lock()
	delete(r.table[user], role)
	r.mu.Unlock()
	if err := r.store.RemoveRole(user, string(role)); err != nil {
		return fmt.Errorf("persist role revoke: %w", err)
	}
	return nil
}

// Has reports whether the user holds the capability.
func (r *Roles) Has(user string, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table[user][role]
}
