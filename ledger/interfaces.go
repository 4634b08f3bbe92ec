// Package ledger defines the fungible-token ledger interface consumed by the
// swap facade, together with an in-memory implementation used in tests and
// local simulation.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger represents the balance and allowance book of a single token.
//
// Actor addresses are explicit parameters: unlike an on-chain call there is no
// ambient caller identity, so every mutating operation names the account it
// acts for. On-chain implementations reject actors other than their signer.
type TokenLedger interface {
	// Token returns the token contract address this ledger tracks.
	Token() common.Address

	// BalanceOf returns the balance of an account.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	// Allowance returns the amount spender may currently draw from owner.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// Transfer moves amount from `from` to `to`.
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error

	// TransferFrom moves amount from `from` to `to` drawing on the allowance
	// `from` granted to `spender`.
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error

	// Approve sets (overwrites, never adds to) the allowance owner grants
	// spender.
	Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) error
}

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a transferFrom exceeds the
	// spender's allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)
