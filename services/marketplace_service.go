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

// listingCounter names the persisted monotonic listing-id counter.
const listingCounter = "marketplace:next_listing_id"

// MarketplaceService runs escrow-free peer-to-peer resale. Listings never
// hold tokens: settlement pulls them from the seller through a standing
// allowance granted to CustodyAccount, so a fill can fail at settlement even
// though the listing still shows remaining amount.
type MarketplaceService struct {
	mu        sync.Mutex
	store     storage.Store
	tokens    *ledger.Set
	payment   ledger.Ledger
	ownership *registry.Ownership
	log       *zap.Logger
	now       func() time.Time

	feeBps       int64
	feeCollector string

	listings      map[int64]*models.Listing
	nextListingID int64
}

// NewMarketplaceService wires the marketplace engine.
func NewMarketplaceService(store storage.Store, tokens *ledger.Set, payment ledger.Ledger,
	ownership *registry.Ownership, feeBps int64, feeCollector string, log *zap.Logger) *MarketplaceService {
	return &MarketplaceService{
		store:        store,
		tokens:       tokens,
		payment:      payment,
		ownership:    ownership,
		log:          log,
		now:          time.Now,
		feeBps:       feeBps,
		feeCollector: feeCollector,
		listings:     make(map[int64]*models.Listing),
	}
}

// Load rehydrates listings and the id counter from the store.
func (m *MarketplaceService) Load() error {
	listings, err := m.store.AllListings()
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}
	next, err := m.store.LoadCounter(listingCounter)
	if err != nil {
		return fmt.Errorf("load listing counter: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range listings {
		l := listings[i]
		m.listings[l.ID] = &l
	}
	m.nextListingID = next
	return nil
}

// List creates a listing for amount token base units at the given price.
// Tokens stay with the seller; only the balance is checked here.
func (m *MarketplaceService) List(propertyID, seller string, amount, pricePerToken int64) (int64, error) {
	tok, ok := m.tokens.Get(propertyID)
	if !ok {
		return 0, ErrPropertyNotFound
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if pricePerToken <= 0 {
		return 0, ErrInvalidPrice
	}
	if tok.BalanceOf(seller) < amount {
		return 0, ErrInsufficientBalance
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextListingID++
	listing := &models.Listing{
		ID:            m.nextListingID,
		PropertyID:    propertyID,
		Seller:        seller,
		Amount:        amount,
		PricePerToken: pricePerToken,
		CreationTime:  m.now(),
		IsActive:      true,
	}
	m.listings[listing.ID] = listing

	if err := m.store.SaveCounter(listingCounter, m.nextListingID); err != nil {
		m.log.Error("persist listing counter", zap.Error(err))
	}
	if err := m.store.SaveListing(*listing); err != nil {
		return 0, fmt.Errorf("persist listing: %w", err)
	}

	m.log.Info("listing created",
		zap.Int64("listing_id", listing.ID),
		zap.String("property_id", propertyID),
		zap.String("seller", seller),
		zap.Int64("amount", amount))
	return listing.ID, nil
}

// Fill settles amount token base units of the listing atomically: payment
// splits into seller proceeds and fee, tokens move seller -> buyer through
// the standing allowance. fee + proceeds == totalCost exactly.
func (m *MarketplaceService) Fill(listingID int64, buyer string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if !listing.IsActive {
		return ErrListingNotActive
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > listing.Amount {
		return ErrAmountExceedsOffer
	}

	tok, ok := m.tokens.Get(listing.PropertyID)
	if !ok {
		return ErrPropertyNotFound
	}

	totalCost, err := models.MulDiv(amount, listing.PricePerToken, models.TokenScale)
	if err != nil {
		return fmt.Errorf("compute cost: %w", err)
	}
	fee, err := models.MulDiv(totalCost, m.feeBps, models.BpsDenominator)
	if err != nil {
		return fmt.Errorf("compute fee: %w", err)
	}
	sellerProceeds := totalCost - fee

	if m.payment.BalanceOf(buyer) < totalCost {
		return ErrInsufficientPayment
	}
	// Settlement-time check: the listing never escrowed anything, so the
	// seller may have transferred away the tokens or revoked the allowance
	// since listing.
	if tok.BalanceOf(listing.Seller) < amount || tok.Allowance(listing.Seller, CustodyAccount) < amount {
		return ErrSettlementFailed
	}

	if err := m.payment.Transfer(buyer, listing.Seller, sellerProceeds); err != nil {
		return fmt.Errorf("pay seller: %w", err)
	}
	if fee > 0 {
		if err := m.payment.Transfer(buyer, m.feeCollector, fee); err != nil {
			if rbErr := m.payment.Transfer(listing.Seller, buyer, sellerProceeds); rbErr != nil {
				m.log.Error("unwind seller payment", zap.Int64("listing_id", listingID), zap.Error(rbErr))
			}
			return fmt.Errorf("collect fee: %w", err)
		}
	}
	if err := tok.TransferFrom(CustodyAccount, listing.Seller, buyer, amount); err != nil {
		if rbErr := m.payment.Transfer(listing.Seller, buyer, sellerProceeds); rbErr != nil {
			m.log.Error("unwind seller payment", zap.Int64("listing_id", listingID), zap.Error(rbErr))
		}
		if fee > 0 {
			if rbErr := m.payment.Transfer(m.feeCollector, buyer, fee); rbErr != nil {
				m.log.Error("unwind fee", zap.Int64("listing_id", listingID), zap.Error(rbErr))
			}
		}
		return fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	listing.Amount -= amount
	if listing.Amount == 0 {
		listing.IsActive = false
	}
	if err := m.store.SaveListing(*listing); err != nil {
		m.log.Error("persist listing after fill", zap.Int64("listing_id", listingID), zap.Error(err))
	}

	m.ownership.NotifyBalanceChanged(listing.Seller, listing.PropertyID, tok.BalanceOf(listing.Seller))
	m.ownership.NotifyBalanceChanged(buyer, listing.PropertyID, tok.BalanceOf(buyer))

	m.log.Info("listing filled",
		zap.Int64("listing_id", listingID),
		zap.String("buyer", buyer),
		zap.Int64("amount", amount),
		zap.Int64("total_cost", totalCost),
		zap.Int64("fee", fee))
	return nil
}

// Cancel deactivates the listing regardless of remaining amount. Only the
// original seller may cancel.
func (m *MarketplaceService) Cancel(listingID int64, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != caller {
		return ErrNotSeller
	}

	listing.IsActive = false
	if err := m.store.SaveListing(*listing); err != nil {
		return fmt.Errorf("persist listing: %w", err)
	}
	m.log.Info("listing cancelled", zap.Int64("listing_id", listingID))
	return nil
}

// GetListing returns a copy of the listing.
func (m *MarketplaceService) GetListing(listingID int64) (models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	listing, ok := m.listings[listingID]
	if !ok {
		return models.Listing{}, ErrListingNotFound
	}
	return *listing, nil
}

// ActiveListings returns copies of all active listings for a property.
func (m *MarketplaceService) ActiveListings(propertyID string) []models.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Listing
	for _, l := range m.listings {
		if l.IsActive && l.PropertyID == propertyID {
			out = append(out, *l)
		}
	}
	return out
}
