package amm

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/michaelpento.lv/tokenswap/ledger"
	"github.com/michaelpento.lv/tokenswap/router"
)

var (
	tokenA   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	poolAddr = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")
	payer    = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	trader   = common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff")
)

func newTestPool(t *testing.T, reserveA, reserveB int64) (*Pool, *ledger.MemoryLedger, *ledger.MemoryLedger) {
	t.Helper()

	la := ledger.NewMemoryLedger(tokenA)
	lb := ledger.NewMemoryLedger(tokenB)
	pool := NewPool(poolAddr, payer, []ledger.TokenLedger{la, lb}, zaptest.NewLogger(t))

	la.Mint(poolAddr, big.NewInt(reserveA))
	lb.Mint(poolAddr, big.NewInt(reserveB))
	pool.SetReserves(tokenA, big.NewInt(reserveA))
	pool.SetReserves(tokenB, big.NewInt(reserveB))
	return pool, la, lb
}

func path() []common.Address {
	return []common.Address{tokenA, tokenB}
}

func TestGetAmountsOut(t *testing.T) {
	ctx := context.Background()
	pool, _, _ := newTestPool(t, 10_000_000, 5_000_000)

	amounts, err := pool.GetAmountsOut(ctx, big.NewInt(1_000_000), path())
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, "1000000", amounts[0].String())
	assert.True(t, amounts[1].Sign() > 0)
	// Output must stay below the no-fee constant-product bound.
	assert.True(t, amounts[1].Cmp(big.NewInt(5_000_000/11)) < 0)
}

func TestGetAmountsIn(t *testing.T) {
	ctx := context.Background()
	pool, _, _ := newTestPool(t, 10_000_000, 5_000_000)

	amounts, err := pool.GetAmountsIn(ctx, big.NewInt(400_000), path())
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, "400000", amounts[1].String())

	// Round trip: swapping the computed input must cover the requested
	// output.
	outAmounts, err := pool.GetAmountsOut(ctx, amounts[0], path())
	require.NoError(t, err)
	assert.True(t, outAmounts[1].Cmp(big.NewInt(400_000)) >= 0)
}

func TestSwapExactIn(t *testing.T) {
	ctx := context.Background()

	t.Run("SettlesAgainstLedgers", func(t *testing.T) {
		pool, la, lb := newTestPool(t, 1_000_000, 1_000_000)
		la.Mint(payer, big.NewInt(1000))
		require.NoError(t, la.Approve(ctx, payer, poolAddr, big.NewInt(1000)))

		amounts, err := pool.SwapExactIn(ctx, big.NewInt(1000), big.NewInt(0), path(), trader, nil)
		require.NoError(t, err)
		assert.Equal(t, "996", amounts[1].String())

		traderOut, err := lb.BalanceOf(ctx, trader)
		require.NoError(t, err)
		assert.Equal(t, "996", traderOut.String())

		payerIn, err := la.BalanceOf(ctx, payer)
		require.NoError(t, err)
		assert.Equal(t, "0", payerIn.String())
	})

	t.Run("MinOutputBound", func(t *testing.T) {
		pool, la, _ := newTestPool(t, 1_000_000, 1_000_000)
		la.Mint(payer, big.NewInt(1000))
		require.NoError(t, la.Approve(ctx, payer, poolAddr, big.NewInt(1000)))

		_, err := pool.SwapExactIn(ctx, big.NewInt(1000), big.NewInt(999), path(), trader, nil)
		require.ErrorIs(t, err, router.ErrInsufficientOutput)
	})

	t.Run("ExpiredDeadline", func(t *testing.T) {
		pool, _, _ := newTestPool(t, 1_000_000, 1_000_000)
		now := time.Unix(1_700_000_000, 0)
		pool.WithClock(func() time.Time { return now })

		deadline := big.NewInt(now.Add(-time.Second).Unix())
		_, err := pool.SwapExactIn(ctx, big.NewInt(1000), big.NewInt(0), path(), trader, deadline)
		require.ErrorIs(t, err, router.ErrDeadlineExpired)
	})

	t.Run("MissingAllowance", func(t *testing.T) {
		pool, la, _ := newTestPool(t, 1_000_000, 1_000_000)
		la.Mint(payer, big.NewInt(1000))

		_, err := pool.SwapExactIn(ctx, big.NewInt(1000), big.NewInt(0), path(), trader, nil)
		require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		pool, _, _ := newTestPool(t, 1_000_000, 1_000_000)

		tests := []struct {
			name string
			path []common.Address
		}{
			{"too_short", []common.Address{tokenA}},
			{"repeated_hop", []common.Address{tokenA, tokenA}},
			{"unknown_token", []common.Address{tokenA, common.HexToAddress("0x9999")}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := pool.SwapExactIn(ctx, big.NewInt(1000), big.NewInt(0), tt.path, trader, nil)
				require.ErrorIs(t, err, router.ErrInvalidPath)
			})
		}
	})
}

func TestSwapForExactOut(t *testing.T) {
	ctx := context.Background()

	t.Run("SettlesAgainstLedgers", func(t *testing.T) {
		pool, la, lb := newTestPool(t, 1_000_000, 1_000_000)
		la.Mint(payer, big.NewInt(600))
		require.NoError(t, la.Approve(ctx, payer, poolAddr, big.NewInt(600)))

		amounts, err := pool.SwapForExactOut(ctx, big.NewInt(500), big.NewInt(600), path(), trader, nil)
		require.NoError(t, err)
		assert.Equal(t, "502", amounts[0].String())
		assert.Equal(t, "500", amounts[1].String())

		traderOut, err := lb.BalanceOf(ctx, trader)
		require.NoError(t, err)
		assert.Equal(t, "500", traderOut.String())
	})

	t.Run("MaxInputBound", func(t *testing.T) {
		pool, la, _ := newTestPool(t, 1_000_000, 1_000_000)
		la.Mint(payer, big.NewInt(600))
		require.NoError(t, la.Approve(ctx, payer, poolAddr, big.NewInt(600)))

		_, err := pool.SwapForExactOut(ctx, big.NewInt(500), big.NewInt(100), path(), trader, nil)
		require.ErrorIs(t, err, router.ErrExcessiveInput)
	})

	t.Run("OutputExceedsReserves", func(t *testing.T) {
		pool, _, _ := newTestPool(t, 1_000_000, 1_000)

		_, err := pool.SwapForExactOut(ctx, big.NewInt(1_000), big.NewInt(10_000_000), path(), trader, nil)
		require.ErrorIs(t, err, router.ErrInsufficientLiquidity)
	})
}

func TestEmptyPoolHasNoLiquidity(t *testing.T) {
	ctx := context.Background()

	la := ledger.NewMemoryLedger(tokenA)
	lb := ledger.NewMemoryLedger(tokenB)
	pool := NewPool(poolAddr, payer, []ledger.TokenLedger{la, lb}, nil)

	_, err := pool.GetAmountsOut(ctx, big.NewInt(1000), path())
	require.ErrorIs(t, err, router.ErrInsufficientLiquidity)
}

func BenchmarkGetAmountsOut(b *testing.B) {
	ctx := context.Background()
	la := ledger.NewMemoryLedger(tokenA)
	lb := ledger.NewMemoryLedger(tokenB)
	pool := NewPool(poolAddr, payer, []ledger.TokenLedger{la, lb}, nil)
	pool.SetReserves(tokenA, big.NewInt(10_000_000))
	pool.SetReserves(tokenB, big.NewInt(5_000_000))

	amountIn := big.NewInt(1_000_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pool.GetAmountsOut(ctx, amountIn, path()); err != nil {
			b.Fatal(err)
		}
	}
}
