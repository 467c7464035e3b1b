package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage/memory"
)

func newLedger() *Ledger {
	return NewLedger(memory.New().Referrals(), 0)
}

func realized(t *testing.T, l *Ledger, codeID string, value int64) {
	t.Helper()
	ctx := context.Background()
	e, err := l.CreateEntry(ctx, EntryInput{
		CodeID:      codeID,
		UserAddress: "0xuser",
		TotalTokens: decimal.NewFromInt(value),
		Type:        domain.ReferralDeposit,
	})
	require.NoError(t, err)
	_, err = l.Realize(ctx, e.ID, decimal.NewFromInt(value))
	require.NoError(t, err)
}

func TestLedger_OverviewProRata(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	a, err := l.CreateCode(ctx, "ALPHA", "0xOwnerA", "Alice")
	require.NoError(t, err)
	b, err := l.CreateCode(ctx, "BETA", "0xownerb", "Bob")
	require.NoError(t, err)

	realized(t, l, a.ID, 300)
	realized(t, l, a.ID, 200)
	realized(t, l, b.ID, 500)

	// An unrealized entry never counts.
	_, err = l.CreateEntry(ctx, EntryInput{
		CodeID: a.ID, UserAddress: "0xuser", TotalTokens: decimal.NewFromInt(9999), Type: domain.ReferralDeposit,
	})
	require.NoError(t, err)

	ov, err := l.Overview(ctx, OverviewQuery{CodeID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(12500), ov.Points)
	assert.True(t, ov.TotalRealizedValue.Equal(decimal.NewFromInt(500)))
	assert.Len(t, ov.Entries, 2)

	byOwner, err := l.Overview(ctx, OverviewQuery{OwnerAddress: "0xOWNERA"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, byOwner.Code.ID)
}

func TestLedger_OverviewZeroGlobal(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	c, err := l.CreateCode(ctx, "ZERO", "0xowner", "")
	require.NoError(t, err)

	ov, err := l.Overview(ctx, OverviewQuery{CodeID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), ov.Points)
	assert.Empty(t, ov.Entries)
}

func TestLedger_Errors(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	_, err := l.CreateCode(ctx, "DUP", "0xowner", "")
	require.NoError(t, err)
	_, err = l.CreateCode(ctx, "DUP", "0xother", "")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	_, err = l.ResolveCode(ctx, "MISSING")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = l.Overview(ctx, OverviewQuery{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = l.Overview(ctx, OverviewQuery{CodeID: "nope"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = l.CreateEntry(ctx, EntryInput{CodeID: "nope", UserAddress: "0xu", Type: domain.ReferralDeposit})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = l.CreateEntry(ctx, EntryInput{CodeID: "x", UserAddress: "0xu", Type: "swap"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = l.Realize(ctx, "nope", decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLedger_Track(t *testing.T) {
	l := newLedger()
	ctx := context.Background()

	c, err := l.CreateCode(ctx, "TRACK", "0xowner", "")
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e, err := l.Track(ctx, "TRACK", EntryInput{
		UserAddress: "0xABC",
		TotalTokens: decimal.RequireFromString("12.5"),
		Type:        domain.ReferralWithdraw,
		Timestamp:   at,
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, e.ReferralCodeID)
	assert.Equal(t, "0xabc", e.UserAddress)
	assert.Nil(t, e.RealizedValue)
	assert.True(t, e.Timestamp.Equal(at))
}

func TestPoints(t *testing.T) {
	tests := []struct {
		code, global string
		want         int64
	}{
		{"500", "1000", 12500},
		{"1", "3", 8333},
		{"2", "3", 16666},
		{"0", "10", 0},
		{"10", "0", 0},
		{"0.5", "1.5", 8333},
		{"1000", "1000", 25000},
	}
	for _, tt := range tests {
		got := Points(decimal.RequireFromString(tt.code), decimal.RequireFromString(tt.global), domain.ReferralPointsPool)
		if got != tt.want {
			t.Errorf("Points(%s, %s) = %d, want %d", tt.code, tt.global, got, tt.want)
		}
	}
}

func TestPoints_SumBoundedByPool(t *testing.T) {
	values := []int64{7, 13, 29, 31}
	var global decimal.Decimal
	for _, v := range values {
		global = global.Add(decimal.NewFromInt(v))
	}

	var sum int64
	for _, v := range values {
		sum += Points(decimal.NewFromInt(v), global, domain.ReferralPointsPool)
	}
	assert.LessOrEqual(t, sum, int64(domain.ReferralPointsPool))
}
