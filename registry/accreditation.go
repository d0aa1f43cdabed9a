package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Oracle is the yes/no accreditation gate the sale engine consults. The
// engines only ever see this interface.
type Oracle interface {
	IsAccredited(user string) bool
}

// AccreditationStore persists the allowlist.
type AccreditationStore interface {
	SaveAccreditation(user string, accredited bool) error
	LoadAccreditations() (map[string]bool, error)
}

// Accreditation is the platform's own oracle implementation: an admin-managed
// allowlist with write-through persistence.
type Accreditation struct {
	mu         sync.RWMutex
	store      AccreditationStore
	log        *zap.Logger
	accredited map[string]bool
}

// NewAccreditation returns an empty registry.
func NewAccreditation(store AccreditationStore, log *zap.Logger) *Accreditation {
	return &Accreditation{
		store:      store,
		log:        log,
		accredited: make(map[string]bool),
	}
}

// Load rehydrates the allowlist from the store.
func (a *Accreditation) Load() error {
	m, err := a.store.LoadAccreditations()
	if err != nil {
		return fmt.Errorf("load accreditations: %w", err)
	}
	a.mu.Lock()
	a.accredited = m
	a.mu.Unlock()
	return nil
}

// SetAccredited grants or revokes a user's accreditation.
func (a *Accreditation) SetAccredited(user string, accredited bool) error {
	a.mu.Lock()
	a.accredited[user] = accredited
	a.mu.Unlock()
	if err := a.store.SaveAccreditation(user, accredited); err != nil {
		return fmt.Errorf("persist accreditation for %s: %w", user, err)
	}
	a.log.Info("accreditation updated", zap.String("user", user), zap.Bool("accredited", accredited))
	return nil
}

func (a *Accreditation) IsAccredited(user string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accredited[user]
}
