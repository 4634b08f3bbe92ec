package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryLedger is an in-memory TokenLedger with standard fungible-token
// semantics. It backs tests and the local simulation mode.
type MemoryLedger struct {
	mu         sync.RWMutex
	token      common.Address
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewMemoryLedger creates an empty ledger for the given token address.
func NewMemoryLedger(token common.Address) *MemoryLedger {
	return &MemoryLedger{
		token:      token,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Token returns the token address this ledger tracks.
func (l *MemoryLedger) Token() common.Address {
	return l.token
}

// Mint credits amount to an account. Test and simulation setup only.
func (l *MemoryLedger) Mint(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, amount)
}

// BalanceOf returns the balance of an account.
func (l *MemoryLedger) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(account)), nil
}

// Allowance returns the amount spender may currently draw from owner.
func (l *MemoryLedger) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.allowance(owner, spender)), nil
}

// Transfer moves amount from `from` to `to`.
func (l *MemoryLedger) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s from %s: %w", amount, from.Hex(), ErrInsufficientBalance)
	}

	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// TransferFrom moves amount from `from` to `to`, drawing down the allowance
// `from` granted to `spender`.
func (l *MemoryLedger) TransferFrom(_ context.Context, spender, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("transferFrom %s by %s: %w", amount, spender.Hex(), ErrInsufficientAllowance)
	}
	if l.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("transferFrom %s from %s: %w", amount, from.Hex(), ErrInsufficientBalance)
	}

	l.allowances[from][spender] = new(big.Int).Sub(allowed, amount)
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// Approve overwrites the allowance owner grants spender.
func (l *MemoryLedger) Approve(_ context.Context, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("approve: %w", ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

func (l *MemoryLedger) balance(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return big.NewInt(0)
}

func (l *MemoryLedger) allowance(owner, spender common.Address) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return big.NewInt(0)
}

func (l *MemoryLedger) credit(account common.Address, amount *big.Int) {
	l.balances[account] = new(big.Int).Add(l.balance(account), amount)
}

func (l *MemoryLedger) debit(account common.Address, amount *big.Int) {
	l.balances[account] = new(big.Int).Sub(l.balance(account), amount)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive: %w", ErrInvalidAmount)
	}
	return nil
}
