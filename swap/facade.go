// Package swap implements the token-swap settlement facade. It pulls input
// tokens from a caller, grants the exchange router a per-call allowance,
// delegates the swap, and reconciles any unspent input back to the caller.
package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tokenswap/ledger"
	"github.com/michaelpento.lv/tokenswap/router"
)

var (
	// ErrTransferFailed is returned when the token ledger rejects a pull or
	// refund, typically for insufficient balance or allowance.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrApprovalFailed is returned when setting the router allowance is
	// rejected by the token ledger.
	ErrApprovalFailed = errors.New("approval failed")

	// ErrSwapFailed is returned when the router rejects the swap, e.g. a
	// violated bound, an expired deadline or insufficient liquidity.
	ErrSwapFailed = errors.New("swap failed")
)

// DefaultDeadlineTTL bounds swap validity when the caller supplies no
// deadline.
const DefaultDeadlineTTL = 30 * time.Second

// Config carries the facade's process-wide collaborators. Token identities
// and the router reference are fixed at construction and immutable after.
type Config struct {
	// Self is the facade's own settlement address, used as custody account
	// for pulled funds and as allowance owner towards the router.
	Self common.Address

	// RouterAddress is the spender the per-call allowance is granted to.
	RouterAddress common.Address

	Router       router.Router
	InputLedger  ledger.TokenLedger
	OutputLedger ledger.TokenLedger

	// DeadlineTTL is the validity window applied when a caller supplies no
	// deadline. Zero selects DefaultDeadlineTTL.
	DeadlineTTL time.Duration

	Logger *zap.Logger
}

// Facade settles single-hop swaps between its two configured tokens. Calls
// are serialized: the pull-approve-swap-reconcile sequence must never
// interleave across callers, or the shared router allowance could leak
// between calls.
type Facade struct {
	mu      sync.Mutex
	cfg     Config
	path    []common.Address
	clock   func() time.Time
	logger  *zap.Logger
	metrics struct {
		swaps       *prometheus.CounterVec
		failures    *prometheus.CounterVec
		latency     prometheus.Histogram
		refundTotal prometheus.Counter
		rescues     prometheus.Counter
	}
}

// ExactInputParams are the inputs of an exact-input swap.
type ExactInputParams struct {
	// Caller is the account the input is pulled from and the output is paid
	// to. It must have approved the facade for at least AmountIn.
	Caller common.Address

	AmountIn *big.Int

	// MinAmountOut bounds the acceptable output. A nil or zero value disables
	// slippage protection, which is logged as a warning.
	MinAmountOut *big.Int

	// Deadline bounds swap validity. Zero defaults to the configured TTL.
	Deadline time.Time
}

// ExactOutputParams are the inputs of an exact-output swap.
type ExactOutputParams struct {
	// Caller is the account the input is pulled from and the output is paid
	// to. It must have approved the facade for at least AmountInMaximum.
	Caller common.Address

	AmountOut       *big.Int
	AmountInMaximum *big.Int

	// Deadline bounds swap validity. Zero defaults to the configured TTL.
	Deadline time.Time
}

// NewFacade creates a swap facade from its configuration.
func NewFacade(cfg Config) (*Facade, error) {
	if cfg.Router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if cfg.InputLedger == nil || cfg.OutputLedger == nil {
		return nil, fmt.Errorf("token ledgers cannot be nil")
	}
	if cfg.InputLedger.Token() == cfg.OutputLedger.Token() {
		return nil, fmt.Errorf("input and output token must differ")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DeadlineTTL <= 0 {
		cfg.DeadlineTTL = DefaultDeadlineTTL
	}

	f := &Facade{
		cfg:    cfg,
		path:   []common.Address{cfg.InputLedger.Token(), cfg.OutputLedger.Token()},
		clock:  time.Now,
		logger: cfg.Logger,
	}

	f.metrics.swaps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_facade_swaps_total",
		Help: "Number of settled swaps by direction",
	}, []string{"direction"})

	f.metrics.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_facade_failures_total",
		Help: "Number of failed swap calls by stage",
	}, []string{"stage"})

	f.metrics.latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_facade_call_latency_seconds",
		Help:    "Latency of facade swap calls",
		Buckets: prometheus.DefBuckets,
	})

	f.metrics.refundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_facade_refund_events_total",
		Help: "Number of unspent-input refunds issued",
	})

	f.metrics.rescues = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_facade_rescues_total",
		Help: "Number of stranded-balance rescues performed",
	})

	return f, nil
}

// WithClock overrides the facade clock for deterministic tests.
func (f *Facade) WithClock(clock func() time.Time) {
	if clock != nil {
		f.clock = clock
	}
}

// Path returns the fixed two-token hop sequence the facade swaps along.
func (f *Facade) Path() []common.Address {
	return append([]common.Address(nil), f.path...)
}

// ExactInputSwap swaps exactly AmountIn of the input token for as much output
// as the router achieves, paid directly to the caller. It returns the settled
// output amount.
func (f *Facade) ExactInputSwap(ctx context.Context, p ExactInputParams) (*big.Int, error) {
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount in must be positive")
	}
	minOut := p.MinAmountOut
	if minOut == nil {
		minOut = big.NewInt(0)
	}
	if minOut.Sign() == 0 {
		f.logger.Warn("exact-input swap without minimum output bound",
			zap.String("caller", p.Caller.Hex()))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	defer func() {
		f.metrics.latency.Observe(time.Since(start).Seconds())
	}()

	if err := f.pull(ctx, p.Caller, p.AmountIn); err != nil {
		f.metrics.failures.WithLabelValues("pull").Inc()
		return nil, err
	}
	if err := f.approveRouter(ctx, p.AmountIn); err != nil {
		f.metrics.failures.WithLabelValues("approve").Inc()
		f.compensate(ctx, p.Caller, p.AmountIn, false)
		return nil, err
	}

	amounts, err := f.cfg.Router.SwapExactIn(ctx, p.AmountIn, minOut, f.path, p.Caller, f.deadline(p.Deadline))
	if err != nil {
		f.metrics.failures.WithLabelValues("swap").Inc()
		f.compensate(ctx, p.Caller, p.AmountIn, true)
		return nil, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}

	amountOut := amounts[len(amounts)-1]
	f.metrics.swaps.WithLabelValues("exact_in").Inc()
	f.logger.Info("exact-input swap settled",
		zap.String("caller", p.Caller.Hex()),
		zap.String("amount_in", p.AmountIn.String()),
		zap.String("amount_out", amountOut.String()))
	return amountOut, nil
}

// ExactOutputSwap swaps just enough input, up to AmountInMaximum, to pay the
// caller exactly AmountOut of the output token. Unspent input is refunded and
// the router allowance revoked before the call returns. It returns the
// settled input amount.
func (f *Facade) ExactOutputSwap(ctx context.Context, p ExactOutputParams) (*big.Int, error) {
	if p.AmountOut == nil || p.AmountOut.Sign() <= 0 {
		return nil, fmt.Errorf("amount out must be positive")
	}
	if p.AmountInMaximum == nil || p.AmountInMaximum.Sign() <= 0 {
		return nil, fmt.Errorf("amount in maximum must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	defer func() {
		f.metrics.latency.Observe(time.Since(start).Seconds())
	}()

	if err := f.pull(ctx, p.Caller, p.AmountInMaximum); err != nil {
		f.metrics.failures.WithLabelValues("pull").Inc()
		return nil, err
	}
	if err := f.approveRouter(ctx, p.AmountInMaximum); err != nil {
		f.metrics.failures.WithLabelValues("approve").Inc()
		f.compensate(ctx, p.Caller, p.AmountInMaximum, false)
		return nil, err
	}

	amounts, err := f.cfg.Router.SwapForExactOut(ctx, p.AmountOut, p.AmountInMaximum, f.path, p.Caller, f.deadline(p.Deadline))
	if err != nil {
		f.metrics.failures.WithLabelValues("swap").Inc()
		f.compensate(ctx, p.Caller, p.AmountInMaximum, true)
		return nil, fmt.Errorf("%w: %v", ErrSwapFailed, err)
	}

	amountIn := amounts[0]
	if amountIn.Cmp(p.AmountInMaximum) < 0 {
		if err := f.reconcile(ctx, p.Caller, amountIn, p.AmountInMaximum); err != nil {
			f.metrics.failures.WithLabelValues("reconcile").Inc()
			return nil, err
		}
	}

	f.metrics.swaps.WithLabelValues("exact_out").Inc()
	f.logger.Info("exact-output swap settled",
		zap.String("caller", p.Caller.Hex()),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", p.AmountOut.String()))
	return amountIn, nil
}

// Rescue sweeps the facade's full balance of a token to the given recipient.
// It recovers funds stranded by a failed reconciliation step.
func (f *Facade) Rescue(ctx context.Context, token, to common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.ledgerFor(token)
	if err != nil {
		return nil, err
	}

	balance, err := l.BalanceOf(ctx, f.cfg.Self)
	if err != nil {
		return nil, fmt.Errorf("failed to read stranded balance: %w", err)
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}

	if err := l.Transfer(ctx, f.cfg.Self, to, balance); err != nil {
		return nil, fmt.Errorf("%w: rescue of %s", ErrTransferFailed, balance)
	}

	f.metrics.rescues.Inc()
	f.logger.Info("rescued stranded balance",
		zap.String("token", token.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", balance.String()))
	return balance, nil
}

// pull draws amount of the input token from the caller into facade custody.
func (f *Facade) pull(ctx context.Context, caller common.Address, amount *big.Int) error {
	if err := f.cfg.InputLedger.TransferFrom(ctx, f.cfg.Self, caller, f.cfg.Self, amount); err != nil {
		return fmt.Errorf("%w: pull of %s from %s: %v", ErrTransferFailed, amount, caller.Hex(), err)
	}
	return nil
}

// approveRouter grants the router exactly the amount intended for this call.
func (f *Facade) approveRouter(ctx context.Context, amount *big.Int) error {
	if err := f.cfg.InputLedger.Approve(ctx, f.cfg.Self, f.cfg.RouterAddress, amount); err != nil {
		return fmt.Errorf("%w: allowance of %s for router: %v", ErrApprovalFailed, amount, err)
	}
	return nil
}

// reconcile revokes the leftover router allowance and refunds the unspent
// input. A failure here can strand the difference in facade custody; Rescue
// recovers it.
func (f *Facade) reconcile(ctx context.Context, caller common.Address, amountIn, amountInMaximum *big.Int) error {
	if err := f.cfg.InputLedger.Approve(ctx, f.cfg.Self, f.cfg.RouterAddress, big.NewInt(0)); err != nil {
		return fmt.Errorf("%w: allowance revoke: %v", ErrApprovalFailed, err)
	}

	refund := new(big.Int).Sub(amountInMaximum, amountIn)
	if err := f.cfg.InputLedger.Transfer(ctx, f.cfg.Self, caller, refund); err != nil {
		return fmt.Errorf("%w: refund of %s to %s: %v", ErrTransferFailed, refund, caller.Hex(), err)
	}

	f.metrics.refundTotal.Inc()
	f.logger.Debug("refunded unspent input",
		zap.String("caller", caller.Hex()),
		zap.String("amount", refund.String()))
	return nil
}

// compensate undoes the pull (and, when approved is set, the router
// allowance) after a later step failed. The host gives no whole-call
// atomicity, so this is the explicit compensating transaction for the
// pull-approve prefix. Failures are logged and left for Rescue.
func (f *Facade) compensate(ctx context.Context, caller common.Address, pulled *big.Int, approved bool) {
	if approved {
		if err := f.cfg.InputLedger.Approve(ctx, f.cfg.Self, f.cfg.RouterAddress, big.NewInt(0)); err != nil {
			f.logger.Error("failed to revoke router allowance during compensation",
				zap.Error(err))
		}
	}
	if err := f.cfg.InputLedger.Transfer(ctx, f.cfg.Self, caller, pulled); err != nil {
		f.logger.Error("failed to refund pulled input during compensation",
			zap.String("caller", caller.Hex()),
			zap.String("amount", pulled.String()),
			zap.Error(err))
	}
}

func (f *Facade) deadline(d time.Time) *big.Int {
	if d.IsZero() {
		d = f.clock().Add(f.cfg.DeadlineTTL)
	}
	return big.NewInt(d.Unix())
}

func (f *Facade) ledgerFor(token common.Address) (ledger.TokenLedger, error) {
	switch token {
	case f.cfg.InputLedger.Token():
		return f.cfg.InputLedger, nil
	case f.cfg.OutputLedger.Token():
		return f.cfg.OutputLedger, nil
	default:
		return nil, fmt.Errorf("token %s not managed by facade", token.Hex())
	}
}
