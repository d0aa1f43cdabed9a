package ledger

import "sync"

// Set holds one token ledger per registered property.
type Set struct {
	mu      sync.RWMutex
	ledgers map[string]Ledger
}

// NewSet returns an empty ledger set.
func NewSet() *Set {
	return &Set{ledgers: make(map[string]Ledger)}
}

// Add registers the ledger for a property. Registering twice replaces the
// previous entry; the factory guards against that upstream.
func (s *Set) Add(propertyID string, l Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[propertyID] = l
}

// Get returns the property's ledger, if registered.
func (s *Set) Get(propertyID string) (Ledger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[propertyID]
	return l, ok
}

// PropertyIDs lists all registered properties.
func (s *Set) PropertyIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	return ids
}
