// Package erc20 implements ledger.TokenLedger over an ERC-20 token contract.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ERC-20 ABI fragment covering the ledger operations plus metadata views.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

const metadataCacheSize = 64

// Ledger is a TokenLedger bound to an ERC-20 contract. All mutating
// operations are signed by the configured transactor, so the actor passed in
// must match the signer address.
type Ledger struct {
	token    common.Address
	contract *bind.BoundContract
	client   *ethclient.Client
	opts     *bind.TransactOpts
	limiter  *rate.Limiter
	metadata *lru.Cache
	logger   *zap.Logger
}

// Metadata holds cached token identity details.
type Metadata struct {
	Symbol   string
	Decimals uint8
}

// NewLedger binds a ledger to the token contract at the given address.
// The limiter may be nil to disable RPC rate limiting.
func NewLedger(token common.Address, client *ethclient.Client, opts *bind.TransactOpts, limiter *rate.Limiter, logger *zap.Logger) (*Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("ethclient cannot be nil")
	}
	if opts == nil {
		return nil, fmt.Errorf("transact opts cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	cache, err := lru.New(metadataCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}

	return &Ledger{
		token:    token,
		contract: bind.NewBoundContract(token, parsedABI, client, client, client),
		client:   client,
		opts:     opts,
		limiter:  limiter,
		metadata: cache,
		logger:   logger,
	}, nil
}

// Token returns the bound token contract address.
func (l *Ledger) Token() common.Address {
	return l.token
}

// BalanceOf returns the on-chain balance of an account.
func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}

	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance")
	}
	return balance, nil
}

// Allowance returns the on-chain allowance owner granted spender.
func (l *Ledger) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}

	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}
	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to parse allowance")
	}
	return allowance, nil
}

// Transfer sends amount from the signer to `to`.
func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if err := l.checkActor(from); err != nil {
		return err
	}
	return l.transact(ctx, "transfer", to, amount)
}

// TransferFrom draws amount from `from` into `to` using the allowance granted
// to the signer.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error {
	if err := l.checkActor(spender); err != nil {
		return err
	}
	return l.transact(ctx, "transferFrom", from, to, amount)
}

// Approve sets the allowance the signer grants spender.
func (l *Ledger) Approve(ctx context.Context, owner, spender common.Address, amount *big.Int) error {
	if err := l.checkActor(owner); err != nil {
		return err
	}
	return l.transact(ctx, "approve", spender, amount)
}

// TokenMetadata returns the token's symbol and decimals, cached after the
// first lookup.
func (l *Ledger) TokenMetadata(ctx context.Context) (Metadata, error) {
	if cached, ok := l.metadata.Get(l.token); ok {
		return cached.(Metadata), nil
	}

	if err := l.wait(ctx); err != nil {
		return Metadata{}, err
	}

	var symOut []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &symOut, "symbol"); err != nil {
		return Metadata{}, fmt.Errorf("failed to get symbol: %w", err)
	}
	var decOut []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &decOut, "decimals"); err != nil {
		return Metadata{}, fmt.Errorf("failed to get decimals: %w", err)
	}

	symbol, ok := symOut[0].(string)
	if !ok {
		return Metadata{}, fmt.Errorf("failed to parse symbol")
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return Metadata{}, fmt.Errorf("failed to parse decimals")
	}

	md := Metadata{Symbol: symbol, Decimals: decimals}
	l.metadata.Add(l.token, md)
	return md, nil
}

func (l *Ledger) transact(ctx context.Context, method string, args ...interface{}) error {
	if err := l.wait(ctx); err != nil {
		return err
	}

	opts := *l.opts
	opts.Context = ctx

	tx, err := l.contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, l.client, tx)
	if err != nil {
		return fmt.Errorf("failed waiting for %s: %w", method, err)
	}
	if receipt.Status == 0 {
		return fmt.Errorf("%s reverted in tx %s", method, tx.Hash().Hex())
	}

	l.logger.Debug("ledger transaction mined",
		zap.String("method", method),
		zap.String("token", l.token.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()))
	return nil
}

func (l *Ledger) checkActor(actor common.Address) error {
	if actor != l.opts.From {
		return fmt.Errorf("actor %s does not match signer %s", actor.Hex(), l.opts.From.Hex())
	}
	return nil
}

func (l *Ledger) wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
