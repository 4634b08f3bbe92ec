// Package amm implements router.Router over an in-memory constant-product
// pool. It settles against ledger.TokenLedger instances, so the full
// pull-approve-swap-pay sequence runs hermetically in tests and local
// simulation.
package amm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tokenswap/ledger"
	"github.com/michaelpento.lv/tokenswap/router"
)

// Pool is a constant-product pool over the tokens of the supplied ledgers.
// The payer address models the transaction sender the pool draws input from;
// it must have approved the pool before a swap.
type Pool struct {
	mu       sync.Mutex
	addr     common.Address
	payer    common.Address
	ledgers  map[common.Address]ledger.TokenLedger
	reserves map[common.Address]*big.Int
	clock    func() time.Time
	logger   *zap.Logger
}

// NewPool creates a pool settling against the given ledgers.
func NewPool(addr, payer common.Address, ledgers []ledger.TokenLedger, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}

	byToken := make(map[common.Address]ledger.TokenLedger, len(ledgers))
	reserves := make(map[common.Address]*big.Int, len(ledgers))
	for _, l := range ledgers {
		byToken[l.Token()] = l
		reserves[l.Token()] = big.NewInt(0)
	}

	return &Pool{
		addr:     addr,
		payer:    payer,
		ledgers:  byToken,
		reserves: reserves,
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock overrides the pool clock for deterministic tests.
func (p *Pool) WithClock(clock func() time.Time) {
	if clock != nil {
		p.clock = clock
	}
}

// Address returns the pool's settlement address.
func (p *Pool) Address() common.Address {
	return p.addr
}

// SetReserves seeds the book reserve for a token. The matching balance must
// already sit on the pool address in the token's ledger.
func (p *Pool) SetReserves(token common.Address, amount *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserves[token] = new(big.Int).Set(amount)
}

// SwapExactIn settles an exact-input swap along path, paying recipient.
func (p *Pool) SwapExactIn(ctx context.Context, amountIn, minAmountOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkSwap(path, deadline); err != nil {
		return nil, err
	}

	amounts, err := p.amountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && amounts[len(amounts)-1].Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("output %s below minimum %s: %w",
			amounts[len(amounts)-1], minAmountOut, router.ErrInsufficientOutput)
	}

	if err := p.settle(ctx, amounts, path, recipient); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapForExactOut settles an exact-output swap along path, paying recipient.
func (p *Pool) SwapForExactOut(ctx context.Context, amountOut, amountInMaximum *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkSwap(path, deadline); err != nil {
		return nil, err
	}

	amounts, err := p.amountsIn(amountOut, path)
	if err != nil {
		return nil, err
	}
	if amountInMaximum != nil && amounts[0].Cmp(amountInMaximum) > 0 {
		return nil, fmt.Errorf("input %s above maximum %s: %w",
			amounts[0], amountInMaximum, router.ErrExcessiveInput)
	}

	if err := p.settle(ctx, amounts, path, recipient); err != nil {
		return nil, err
	}
	return amounts, nil
}

// GetAmountsOut estimates the per-hop outputs for an exact-input swap.
func (p *Pool) GetAmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return p.amountsOut(amountIn, path)
}

// GetAmountsIn estimates the per-hop inputs for an exact-output swap.
func (p *Pool) GetAmountsIn(_ context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return p.amountsIn(amountOut, path)
}

func (p *Pool) checkSwap(path []common.Address, deadline *big.Int) error {
	if err := router.ValidatePath(path); err != nil {
		return err
	}
	for _, token := range path {
		if _, ok := p.ledgers[token]; !ok {
			return fmt.Errorf("token %s not in pool: %w", token.Hex(), router.ErrInvalidPath)
		}
	}
	if deadline != nil && deadline.Sign() > 0 && p.clock().Unix() > deadline.Int64() {
		return router.ErrDeadlineExpired
	}
	return nil
}

// settle pulls amounts[0] of path[0] from the payer, pays the final hop to
// the recipient and moves the book reserves.
func (p *Pool) settle(ctx context.Context, amounts []*big.Int, path []common.Address, recipient common.Address) error {
	tokenIn, tokenOut := path[0], path[len(path)-1]
	amountIn, amountOut := amounts[0], amounts[len(amounts)-1]

	if err := p.ledgers[tokenIn].TransferFrom(ctx, p.addr, p.payer, p.addr, amountIn); err != nil {
		return fmt.Errorf("failed to pull input: %w", err)
	}
	if err := p.ledgers[tokenOut].Transfer(ctx, p.addr, recipient, amountOut); err != nil {
		return fmt.Errorf("failed to pay output: %w", err)
	}

	p.reserves[tokenIn] = new(big.Int).Add(p.reserves[tokenIn], amountIn)
	p.reserves[tokenOut] = new(big.Int).Sub(p.reserves[tokenOut], amountOut)

	p.logger.Debug("pool settled swap",
		zap.String("token_in", tokenIn.Hex()),
		zap.String("token_out", tokenOut.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()))
	return nil
}

func (p *Pool) amountsOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount in must be positive: %w", ledger.ErrInvalidAmount)
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		out, err := getAmountOut(amounts[i], p.reserve(path[i]), p.reserve(path[i+1]))
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

func (p *Pool) amountsIn(amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("amount out must be positive: %w", ledger.ErrInvalidAmount)
	}

	amounts := make([]*big.Int, len(path))
	amounts[len(amounts)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		in, err := getAmountIn(amounts[i], p.reserve(path[i-1]), p.reserve(path[i]))
		if err != nil {
			return nil, err
		}
		amounts[i-1] = in
	}
	return amounts, nil
}

func (p *Pool) reserve(token common.Address) *big.Int {
	if r, ok := p.reserves[token]; ok {
		return r
	}
	return big.NewInt(0)
}

// getAmountOut applies the constant-product formula with a 0.3% fee.
func getAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, router.ErrInsufficientLiquidity
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(1000)), amountInWithFee)
	return new(big.Int).Div(numerator, denominator), nil
}

// getAmountIn inverts getAmountOut, rounding up by one.
func getAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, router.ErrInsufficientLiquidity
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, router.ErrInsufficientLiquidity
	}

	numerator := new(big.Int).Mul(new(big.Int).Mul(reserveIn, amountOut), big.NewInt(1000))
	denominator := new(big.Int).Mul(new(big.Int).Sub(reserveOut, amountOut), big.NewInt(997))
	amountIn := new(big.Int).Div(numerator, denominator)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}
