package ledger

import (
	"fmt"
	"sync"
)

// Memory is the in-process reference ledger. All mutations hold the mutex, so
// every operation observes a fully-settled state and the conservation
// invariant sum(balances) == totalSupply holds at every release.
type Memory struct {
	mu          sync.RWMutex
	symbol      string
	balances    map[string]int64
	allowances  map[string]map[string]int64
	totalSupply int64
}

// NewMemory returns an empty ledger for the given token symbol.
func NewMemory(symbol string) *Memory {
	return &Memory{
		symbol:     symbol,
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
	}
}

func (m *Memory) Symbol() string { return m.symbol }

func (m *Memory) BalanceOf(holder string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[holder]
}

func (m *Memory) TotalSupply() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalSupply
}

func (m *Memory) Mint(to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[to] += amount
	m.totalSupply += amount
	return nil
}

func (m *Memory) Burn(from string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return fmt.Errorf("burn %s from %s: %w", m.symbol, from, ErrInsufficientBalance)
	}
	m.balances[from] -= amount
	m.totalSupply -= amount
	return nil
}

func (m *Memory) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return fmt.Errorf("transfer %s from %s: %w", m.symbol, from, ErrInsufficientBalance)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) Approve(owner, spender string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[string]int64)
	}
	m.allowances[owner][spender] = amount
	return nil
}

func (m *Memory) Allowance(owner, spender string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allowances[owner][spender]
}

func (m *Memory) TransferFrom(spender, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[from][spender] < amount {
		return fmt.Errorf("transferFrom %s by %s: %w", m.symbol, spender, ErrInsufficientAllowance)
	}
	if m.balances[from] < amount {
		return fmt.Errorf("transferFrom %s from %s: %w", m.symbol, from, ErrInsufficientBalance)
	}
	m.allowances[from][spender] -= amount
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}
