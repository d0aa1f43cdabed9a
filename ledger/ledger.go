package ledger

import "errors"

// Ledger is the fungible-token collaborator: a holder -> balance mapping
// mutated only through mint/transfer/burn. Engines read balances and request
// mutations; they never reach into the mapping directly.
type Ledger interface {
	BalanceOf(holder string) int64
	TotalSupply() int64
	Mint(to string, amount int64) error
	Burn(from string, amount int64) error
	Transfer(from, to string, amount int64) error
	Approve(owner, spender string, amount int64) error
	Allowance(owner, spender string) int64
	TransferFrom(spender, from, to string, amount int64) error
}

var (
	ErrInvalidAmount         = errors.New("ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
)
