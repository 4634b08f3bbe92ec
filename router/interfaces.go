// Package router defines the exchange-router interface the swap facade
// delegates to.
package router

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Router represents an exchange router able to settle single and multi-hop
// token swaps. Both operations return the per-hop amounts the router settled,
// index 0 being the input token and the last index the output token.
type Router interface {
	// SwapExactIn swaps exactly amountIn along path, paying the output to
	// recipient. Fails if the achieved output is below minAmountOut or the
	// deadline has passed.
	SwapExactIn(ctx context.Context, amountIn, minAmountOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error)

	// SwapForExactOut swaps just enough input along path to pay amountOut to
	// recipient. Fails if the required input exceeds amountInMaximum or the
	// deadline has passed.
	SwapForExactOut(ctx context.Context, amountOut, amountInMaximum *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error)
}

// Quoter estimates swap amounts without settling anything.
type Quoter interface {
	// GetAmountsOut returns the per-hop outputs for swapping amountIn along
	// path.
	GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)

	// GetAmountsIn returns the per-hop inputs required to obtain amountOut
	// along path.
	GetAmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error)
}

var (
	// ErrDeadlineExpired is returned when a swap is submitted past its
	// deadline.
	ErrDeadlineExpired = errors.New("swap deadline expired")

	// ErrInsufficientOutput is returned when the achievable output falls
	// below the caller's minimum bound.
	ErrInsufficientOutput = errors.New("insufficient output amount")

	// ErrExcessiveInput is returned when the required input exceeds the
	// caller's maximum bound.
	ErrExcessiveInput = errors.New("excessive input amount")

	// ErrInsufficientLiquidity is returned when pool reserves cannot satisfy
	// the swap.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInvalidPath is returned for paths shorter than two tokens.
	ErrInvalidPath = errors.New("invalid path")
)

// ValidatePath checks that a hop sequence has at least two tokens and no
// zero-hop (token swapped into itself).
func ValidatePath(path []common.Address) error {
	if len(path) < 2 {
		return ErrInvalidPath
	}
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			return ErrInvalidPath
		}
	}
	return nil
}
