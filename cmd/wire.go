package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/tokenswap/config"
	"github.com/michaelpento.lv/tokenswap/ledger/erc20"
	"github.com/michaelpento.lv/tokenswap/router/uniswap"
	"github.com/michaelpento.lv/tokenswap/swap"
)

// wiring bundles the facade with the adapters the commands need.
type wiring struct {
	cfg    *config.Config
	facade *swap.Facade
	router *uniswap.V2Router
	opts   *bind.TransactOpts
	logger *zap.Logger
}

// buildWiring assembles the on-chain facade from configuration, environment
// secrets and the RPC endpoint.
func buildWiring(logger *zap.Logger) (*wiring, error) {
	if err := config.LoadEnv(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}

	secure, err := config.LoadSecureConfig()
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(secure.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPCRateLimit.RequestsPerSecond), cfg.RPCRateLimit.BurstSize)

	inputLedger, err := erc20.NewLedger(cfg.InputTokenAddress(), client, opts, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to bind input token ledger: %w", err)
	}
	outputLedger, err := erc20.NewLedger(cfg.OutputTokenAddress(), client, opts, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to bind output token ledger: %w", err)
	}

	v2Router, err := uniswap.NewV2Router(cfg.RouterAddress(), client, opts, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to bind router: %w", err)
	}

	facade, err := swap.NewFacade(swap.Config{
		Self:          opts.From,
		RouterAddress: cfg.RouterAddress(),
		Router:        v2Router,
		InputLedger:   inputLedger,
		OutputLedger:  outputLedger,
		DeadlineTTL:   cfg.SwapDeadline,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create facade: %w", err)
	}

	return &wiring{
		cfg:    cfg,
		facade: facade,
		router: v2Router,
		opts:   opts,
		logger: logger,
	}, nil
}
