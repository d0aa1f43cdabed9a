package registry

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/propshare/propshare/models"
)

// OwnershipStore persists aggregator rows.
type OwnershipStore interface {
	SaveOwnership(rec models.OwnershipRecord) error
	LoadOwnership() ([]models.OwnershipRecord, error)
}

// Portfolio is a user's aggregated view across all properties.
type Portfolio struct {
	User       string                   `json:"user"`
	Holdings   []models.OwnershipRecord `json:"holdings"`
	TotalUnits int64                    `json:"total_units"`
}

// Ownership is the portfolio aggregator: a write-through cache of each
// holder's last reported balance per property. Engines call
// NotifyBalanceChanged after every balance-moving operation; reads are served
// from an LRU of assembled portfolios that is invalidated on write.
type Ownership struct {
	mu       sync.RWMutex
	store    OwnershipStore
	log      *zap.Logger
	now      func() time.Time
	holdings map[string]map[string]int64 // user -> propertyID -> balance
	cache    *lru.Cache                  // user -> Portfolio
}

// NewOwnership returns an empty aggregator with a portfolio cache of the
// given size.
func NewOwnership(store OwnershipStore, cacheSize int, log *zap.Logger) *Ownership {
	cache, _ := lru.New(cacheSize)
	return &Ownership{
		store:    store,
		log:      log,
		now:      time.Now,
		holdings: make(map[string]map[string]int64),
		cache:    cache,
	}
}

// Load rehydrates the aggregator from the store.
func (o *Ownership) Load() error {
	rows, err := o.store.LoadOwnership()
	if err != nil {
		return fmt.Errorf("load ownership: %w", err)
	}
	o.mu.Lock()
	o.holdings = make(map[string]map[string]int64)
	for _, rec := range rows {
		if o.holdings[rec.User] == nil {
			o.holdings[rec.User] = make(map[string]int64)
		}
		o.holdings[rec.User][rec.PropertyID] = rec.Balance
	}
	o.mu.Unlock()
	o.cache.Purge()
	return nil
}

// NotifyBalanceChanged records the user's new balance for the property. A
// zero balance keeps the row so the portfolio still shows exited positions.
func (o *Ownership) NotifyBalanceChanged(user, propertyID string, balance int64) {
	rec := models.OwnershipRecord{
		User:       user,
		PropertyID: propertyID,
		Balance:    balance,
		UpdatedAt:  o.now(),
	}
	o.mu.Lock()
	if o.holdings[user] == nil {
		o.holdings[user] = make(map[string]int64)
	}
	o.holdings[user][propertyID] = balance
	o.mu.Unlock()
	o.cache.Remove(user)

	if err := o.store.SaveOwnership(rec); err != nil {
		// Aggregator rows are derivable from the ledgers; the listener's
		// audit sweep repairs gaps, so a failed write is not fatal here.
		o.log.Error("persist ownership row",
			zap.String("user", user),
			zap.String("property_id", propertyID),
			zap.Error(err))
	}
}

// Rows snapshots every aggregator row, for the listener's audit sweep.
func (o *Ownership) Rows() []models.OwnershipRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []models.OwnershipRecord
	for user, props := range o.holdings {
		for propertyID, bal := range props {
			out = append(out, models.OwnershipRecord{
				User:       user,
				PropertyID: propertyID,
				Balance:    bal,
			})
		}
	}
	return out
}

// BalanceOf returns the last reported balance for the user and property.
func (o *Ownership) BalanceOf(user, propertyID string) int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.holdings[user][propertyID]
}

// Portfolio assembles (or serves from cache) the user's aggregated holdings.
func (o *Ownership) Portfolio(user string) Portfolio {
	if v, ok := o.cache.Get(user); ok {
		if p, ok := v.(Portfolio); ok {
			return p
		}
	}

	o.mu.RLock()
	p := Portfolio{User: user}
	for propertyID, bal := range o.holdings[user] {
		p.Holdings = append(p.Holdings, models.OwnershipRecord{
			User:       user,
			PropertyID: propertyID,
			Balance:    bal,
		})
		p.TotalUnits += bal
	}
	o.mu.RUnlock()

	o.cache.Add(user, p)
	return p
}
