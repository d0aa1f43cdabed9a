package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/storage"
)

// ChainMirror reflects committed issuance onto an external chain. Engines
// call it after their own state is settled; failures are logged, never rolled
// back. A nil mirror disables mirroring.
type ChainMirror interface {
	MintIssuance(ctx context.Context, mintAddress string, amount uint64) error
}

// SaleService runs the primary offering for each property: it converts
// payment into newly minted supply under price/min/max/cap constraints. One
// sale per property; reconfiguration replaces the previous one wholesale.
//
// All public operations hold the mutex end to end, so no caller ever observes
// a half-updated sale and every failure leaves state untouched.
type SaleService struct {
	mu        sync.Mutex
	store     storage.Store
	tokens    *ledger.Set
	payment   ledger.Ledger
	oracle    registry.Oracle
	ownership *registry.Ownership
	roles     *registry.Roles
	mirror    ChainMirror
	log       *zap.Logger
	now       func() time.Time

	sales map[string]*models.Sale
}

// NewSaleService wires the sale engine. mirror may be nil.
func NewSaleService(store storage.Store, tokens *ledger.Set, payment ledger.Ledger,
	oracle registry.Oracle, ownership *registry.Ownership, roles *registry.Roles,
	mirror ChainMirror, log *zap.Logger) *SaleService {
	return &SaleService{
		store:     store,
		tokens:    tokens,
		payment:   payment,
		oracle:    oracle,
		ownership: ownership,
		roles:     roles,
		mirror:    mirror,
		log:       log,
		now:       time.Now,
		sales:     make(map[string]*models.Sale),
	}
}

// Load rehydrates sale state from the store.
func (s *SaleService) Load() error {
	sales, err := s.store.AllSales()
	if err != nil {
		return fmt.Errorf("load sales: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range sales {
		sale := sales[i]
		s.sales[sale.PropertyID] = &sale
	}
	return nil
}

// ConfigureSale replaces any existing sale for the property with a fresh,
// active one. min<=max is deliberately not enforced; an operator who inverts
// the bounds gets a sale nobody can buy from.
func (s *SaleService) ConfigureSale(propertyID, caller string, price, min, max, cap int64, endTime time.Time) error {
	if !s.roles.Has(caller, registry.RoleOperator) {
		return ErrUnauthorized
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	if _, ok := s.tokens.Get(propertyID); !ok {
		return ErrPropertyNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale := &models.Sale{
		PropertyID:    propertyID,
		PricePerToken: price,
		MinPurchase:   min,
		MaxPurchase:   max,
		MaxSupply:     cap,
		TotalSold:     0,
		IsActive:      true,
		SaleEndTime:   endTime,
		CreatedAt:     s.now(),
	}
	s.sales[propertyID] = sale
	if err := s.store.SaveSale(*sale); err != nil {
		return fmt.Errorf("persist sale: %w", err)
	}

	s.log.Info("sale configured",
		zap.String("property_id", propertyID),
		zap.Int64("price_per_token", price),
		zap.Int64("max_supply", cap))
	return nil
}

// DeactivateSale closes the offering without discarding its counters.
func (s *SaleService) DeactivateSale(propertyID, caller string) error {
	if !s.roles.Has(caller, registry.RoleOperator) {
		return ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[propertyID]
	if !ok {
		return ErrSaleNotActive
	}
	sale.IsActive = false
	if err := s.store.SaveSale(*sale); err != nil {
		return fmt.Errorf("persist sale: %w", err)
	}
	return nil
}

// Purchase mints amount token base units to the buyer against payment at the
// configured price. The supply cap rejection reuses ErrPurchaseTooHigh, the
// same signal as exceeding max_purchase.
func (s *SaleService) Purchase(propertyID, buyer string, amount int64) error {
	tok, ok := s.tokens.Get(propertyID)
	if !ok {
		return ErrPropertyNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[propertyID]
	if !ok || !sale.IsActive || sale.Ended(s.now()) {
		return ErrSaleNotActive
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !s.oracle.IsAccredited(buyer) {
		return ErrNotAccredited
	}
	if amount < sale.MinPurchase {
		return ErrPurchaseTooLow
	}
	if amount > sale.MaxPurchase {
		return ErrPurchaseTooHigh
	}
	if sale.MaxSupply != 0 && sale.TotalSold+amount > sale.MaxSupply {
		return ErrPurchaseTooHigh
	}

	cost, err := models.MulDiv(amount, sale.PricePerToken, models.TokenScale)
	if err != nil {
		return fmt.Errorf("compute cost: %w", err)
	}
	if s.payment.BalanceOf(buyer) < cost {
		return ErrInsufficientPayment
	}

	// Checks done; settle. Payment first, then mint, then the counter.
	if err := s.payment.Transfer(buyer, CustodyAccount, cost); err != nil {
		return fmt.Errorf("collect payment: %w", err)
	}
	if err := tok.Mint(buyer, amount); err != nil {
		// Return the payment so a failed mint leaves nothing half-done.
		if rbErr := s.payment.Transfer(CustodyAccount, buyer, cost); rbErr != nil {
			s.log.Error("refund after failed mint", zap.String("buyer", buyer), zap.Error(rbErr))
		}
		return fmt.Errorf("mint purchase: %w", err)
	}
	sale.TotalSold += amount

	if err := s.store.SaveSale(*sale); err != nil {
		s.log.Error("persist sale after purchase", zap.String("property_id", propertyID), zap.Error(err))
	}
	s.ownership.NotifyBalanceChanged(buyer, propertyID, tok.BalanceOf(buyer))
	s.mirrorMint(propertyID, amount)

	s.log.Info("purchase settled",
		zap.String("property_id", propertyID),
		zap.String("buyer", buyer),
		zap.Int64("amount", amount),
		zap.Int64("cost", cost))
	return nil
}

// mirrorMint pushes freshly minted supply on chain for properties carrying a
// mint address. The purchase is already committed; a failure here is left to
// the chain listener's reconciliation.
func (s *SaleService) mirrorMint(propertyID string, amount int64) {
	if s.mirror == nil {
		return
	}
	prop, ok, err := s.store.GetProperty(propertyID)
	if err != nil || !ok || prop.MintAddress == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.mirror.MintIssuance(ctx, prop.MintAddress, uint64(amount)); err != nil {
		s.log.Warn("mirror mint failed",
			zap.String("property_id", propertyID),
			zap.String("mint", prop.MintAddress),
			zap.Error(err))
	}
}

// SaleInfo returns a copy of the property's sale record.
func (s *SaleService) SaleInfo(propertyID string) (models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[propertyID]
	if !ok {
		return models.Sale{}, ErrPropertyNotFound
	}
	return *sale, nil
}
