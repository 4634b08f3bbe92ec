package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0x1111111111111111111111111111111111111111")
	alice = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func TestMemoryLedgerTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("MovesBalance", func(t *testing.T) {
		l := NewMemoryLedger(token)
		l.Mint(alice, big.NewInt(100))

		require.NoError(t, l.Transfer(ctx, alice, bob, big.NewInt(40)))

		aliceBal, err := l.BalanceOf(ctx, alice)
		require.NoError(t, err)
		bobBal, err := l.BalanceOf(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, "60", aliceBal.String())
		assert.Equal(t, "40", bobBal.String())
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		l := NewMemoryLedger(token)
		l.Mint(alice, big.NewInt(10))

		err := l.Transfer(ctx, alice, bob, big.NewInt(11))
		require.ErrorIs(t, err, ErrInsufficientBalance)

		aliceBal, _ := l.BalanceOf(ctx, alice)
		assert.Equal(t, "10", aliceBal.String())
	})

	t.Run("RejectsNonPositiveAmounts", func(t *testing.T) {
		l := NewMemoryLedger(token)
		require.ErrorIs(t, l.Transfer(ctx, alice, bob, big.NewInt(0)), ErrInvalidAmount)
		require.ErrorIs(t, l.Transfer(ctx, alice, bob, nil), ErrInvalidAmount)
	})
}

func TestMemoryLedgerTransferFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("DrawsDownAllowance", func(t *testing.T) {
		l := NewMemoryLedger(token)
		l.Mint(alice, big.NewInt(100))
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(70)))

		require.NoError(t, l.TransferFrom(ctx, bob, alice, carol, big.NewInt(50)))

		remaining, err := l.Allowance(ctx, alice, bob)
		require.NoError(t, err)
		assert.Equal(t, "20", remaining.String())

		carolBal, _ := l.BalanceOf(ctx, carol)
		assert.Equal(t, "50", carolBal.String())
	})

	t.Run("InsufficientAllowance", func(t *testing.T) {
		l := NewMemoryLedger(token)
		l.Mint(alice, big.NewInt(100))
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(10)))

		err := l.TransferFrom(ctx, bob, alice, carol, big.NewInt(50))
		require.ErrorIs(t, err, ErrInsufficientAllowance)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		l := NewMemoryLedger(token)
		l.Mint(alice, big.NewInt(10))
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(50)))

		err := l.TransferFrom(ctx, bob, alice, carol, big.NewInt(50))
		require.ErrorIs(t, err, ErrInsufficientBalance)

		// Allowance untouched on a failed draw.
		remaining, _ := l.Allowance(ctx, alice, bob)
		assert.Equal(t, "50", remaining.String())
	})
}

func TestMemoryLedgerApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("OverwritesNotAdds", func(t *testing.T) {
		l := NewMemoryLedger(token)
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(100)))
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(30)))

		allowed, err := l.Allowance(ctx, alice, bob)
		require.NoError(t, err)
		assert.Equal(t, "30", allowed.String())
	})

	t.Run("ZeroRevokes", func(t *testing.T) {
		l := NewMemoryLedger(token)
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(100)))
		require.NoError(t, l.Approve(ctx, alice, bob, big.NewInt(0)))

		allowed, _ := l.Allowance(ctx, alice, bob)
		assert.Equal(t, "0", allowed.String())
	})

	t.Run("RejectsNegative", func(t *testing.T) {
		l := NewMemoryLedger(token)
		require.ErrorIs(t, l.Approve(ctx, alice, bob, big.NewInt(-1)), ErrInvalidAmount)
	})
}

func TestMemoryLedgerToken(t *testing.T) {
	l := NewMemoryLedger(token)
	assert.Equal(t, token, l.Token())
}
