package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/tokenswap/router"
)

// QuoteExactInput estimates the output a caller would receive for swapping
// amountIn along the facade's path. Read-only; nothing settles.
func (f *Facade) QuoteExactInput(ctx context.Context, q router.Quoter, amountIn *big.Int) (*big.Int, error) {
	if q == nil {
		return nil, fmt.Errorf("quoter cannot be nil")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount in must be positive")
	}

	amounts, err := q.GetAmountsOut(ctx, amountIn, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to quote exact input: %w", err)
	}
	return amounts[len(amounts)-1], nil
}

// QuoteExactOutput estimates the input required to obtain amountOut along the
// facade's path. Read-only; nothing settles.
func (f *Facade) QuoteExactOutput(ctx context.Context, q router.Quoter, amountOut *big.Int) (*big.Int, error) {
	if q == nil {
		return nil, fmt.Errorf("quoter cannot be nil")
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("amount out must be positive")
	}

	amounts, err := q.GetAmountsIn(ctx, amountOut, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to quote exact output: %w", err)
	}
	return amounts[0], nil
}
