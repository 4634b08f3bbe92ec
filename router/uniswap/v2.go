// Package uniswap implements router.Router over a Uniswap V2 compatible
// router contract.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/tokenswap/router"
)

// V2 router ABI fragment for single and multi-hop token swaps.
const routerABI = `[
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapTokensForExactTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsIn","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}
]`

// V2Router binds router.Router to an on-chain V2 router contract. Swaps are
// simulated first to learn the per-hop amounts the contract would settle,
// then submitted and awaited.
type V2Router struct {
	address  common.Address
	contract *bind.BoundContract
	client   *ethclient.Client
	opts     *bind.TransactOpts
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewV2Router binds an adapter to the router contract at the given address.
// The limiter may be nil to disable RPC rate limiting.
func NewV2Router(address common.Address, client *ethclient.Client, opts *bind.TransactOpts, limiter *rate.Limiter, logger *zap.Logger) (*V2Router, error) {
	if client == nil {
		return nil, fmt.Errorf("ethclient cannot be nil")
	}
	if opts == nil {
		return nil, fmt.Errorf("transact opts cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsedABI, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	return &V2Router{
		address:  address,
		contract: bind.NewBoundContract(address, parsedABI, client, client, client),
		client:   client,
		opts:     opts,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Address returns the router contract address.
func (r *V2Router) Address() common.Address {
	return r.address
}

// SwapExactIn settles an exact-input swap through the router contract.
func (r *V2Router) SwapExactIn(ctx context.Context, amountIn, minAmountOut *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error) {
	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return r.swap(ctx, "swapExactTokensForTokens", amountIn, minAmountOut, path, recipient, deadline)
}

// SwapForExactOut settles an exact-output swap through the router contract.
func (r *V2Router) SwapForExactOut(ctx context.Context, amountOut, amountInMaximum *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error) {
	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return r.swap(ctx, "swapTokensForExactTokens", amountOut, amountInMaximum, path, recipient, deadline)
}

// GetAmountsOut quotes the per-hop outputs for an exact-input swap.
func (r *V2Router) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return r.quote(ctx, "getAmountsOut", amountIn, path)
}

// GetAmountsIn quotes the per-hop inputs for an exact-output swap.
func (r *V2Router) GetAmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := router.ValidatePath(path); err != nil {
		return nil, err
	}
	return r.quote(ctx, "getAmountsIn", amountOut, path)
}

func (r *V2Router) quote(ctx context.Context, method string, amount *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, amount, path); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s result", method)
	}
	return amounts, nil
}

// swap simulates the call from the signer to learn the settled amounts, then
// submits the transaction and waits for it to mine.
func (r *V2Router) swap(ctx context.Context, method string, amount, bound *big.Int, path []common.Address, recipient common.Address, deadline *big.Int) ([]*big.Int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx, From: r.opts.From}
	if err := r.contract.Call(callOpts, &out, method, amount, bound, path, recipient, deadline); err != nil {
		return nil, fmt.Errorf("%s simulation failed: %w", method, err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s result", method)
	}

	opts := *r.opts
	opts.Context = ctx

	tx, err := r.contract.Transact(&opts, method, amount, bound, path, recipient, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", method, err)
	}
	if receipt.Status == 0 {
		return nil, fmt.Errorf("%s reverted in tx %s", method, tx.Hash().Hex())
	}

	r.logger.Info("router swap mined",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("amount_in", amounts[0].String()),
		zap.String("amount_out", amounts[len(amounts)-1].String()))
	return amounts, nil
}

func (r *V2Router) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
