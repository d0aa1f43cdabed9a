package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/storage"
)

// PropertyService registers properties and their per-property token ledgers.
// It is the factory the other engines depend on: a property id unknown to the
// ledger set does not exist anywhere else on the platform.
type PropertyService struct {
	mu     sync.Mutex
	store  storage.Store
	tokens *ledger.Set
	roles  *registry.Roles
	log    *zap.Logger
	now    func() time.Time

	properties map[string]*models.Property
}

// NewPropertyService wires the property registry.
func NewPropertyService(store storage.Store, tokens *ledger.Set, roles *registry.Roles, log *zap.Logger) *PropertyService {
	return &PropertyService{
		store:      store,
		tokens:     tokens,
		roles:      roles,
		log:        log,
		now:        time.Now,
		properties: make(map[string]*models.Property),
	}
}

// Load rehydrates properties from the store and recreates their ledgers.
// Balances themselves are rebuilt by the ownership registry.
func (p *PropertyService) Load() error {
	properties, err := p.store.ListProperties()
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range properties {
		prop := properties[i]
		p.properties[prop.ID] = &prop
		if _, ok := p.tokens.Get(prop.ID); !ok {
			p.tokens.Add(prop.ID, ledger.NewMemory(prop.Symbol))
		}
	}
	return nil
}

// RegisterProperty creates a property and its empty token ledger. mintAddress
// is the optional on-chain mirror mint, recorded verbatim.
func (p *PropertyService) RegisterProperty(caller, name, symbol, address string, totalValue int64, mintAddress string) (models.Property, error) {
	if !p.roles.Has(caller, registry.RoleAdmin) {
		return models.Property{}, ErrUnauthorized
	}
	if name == "" || symbol == "" {
		return models.Property{}, fmt.Errorf("%w: name and symbol are required", ErrInvalidAmount)
	}
	if totalValue <= 0 {
		return models.Property{}, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prop := &models.Property{
		ID:          uuid.New().String(),
		Name:        name,
		Symbol:      symbol,
		Address:     address,
		TotalValue:  totalValue,
		MintAddress: mintAddress,
		CreatedAt:   p.now(),
	}
	p.properties[prop.ID] = prop
	p.tokens.Add(prop.ID, ledger.NewMemory(symbol))

	if err := p.store.SaveProperty(*prop); err != nil {
		return models.Property{}, fmt.Errorf("persist property: %w", err)
	}

	p.log.Info("property registered",
		zap.String("property_id", prop.ID),
		zap.String("symbol", symbol),
		zap.Int64("total_value", totalValue))
	return *prop, nil
}

// GetProperty returns the property by id.
func (p *PropertyService) GetProperty(propertyID string) (models.Property, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prop, ok := p.properties[propertyID]
	if !ok {
		return models.Property{}, ErrPropertyNotFound
	}
	return *prop, nil
}

// ListProperties returns all properties, oldest first.
func (p *PropertyService) ListProperties() []models.Property {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Property, 0, len(p.properties))
	for _, prop := range p.properties {
		out = append(out, *prop)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
