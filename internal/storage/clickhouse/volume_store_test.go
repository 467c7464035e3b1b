package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
)

func TestVolumeStore_DailyConverges(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVolumeStore(conn)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 100)

	batch := []*domain.Activity{
		{ID: "d1", VaultAddress: "0xv", Type: domain.ActivityDeposit, UserAddress: "0xa", YesAmount: *big, NoAmount: *uint256.NewInt(5), Timestamp: day.Add(time.Hour).Unix()},
		{ID: "w1", VaultAddress: "0xv", Type: domain.ActivityWithdraw, UserAddress: "0xa", YesAmount: *uint256.NewInt(3), Timestamp: day.Add(2 * time.Hour).Unix()},
		{ID: "c1", VaultAddress: "0xv", Type: domain.ActivityClaim, UserAddress: "0xb", UsdAmount: *uint256.NewInt(40), Timestamp: day.Add(3 * time.Hour).Unix()},
		{ID: "m1", VaultAddress: "0xv", Type: domain.ActivityMarketAdded, Timestamp: day.Add(26 * time.Hour).Unix()},
	}

	require.NoError(t, store.Insert(ctx, batch))
	require.NoError(t, store.Insert(ctx, batch)) // redelivery

	days, err := store.Daily(ctx, "0xv", day, day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, days, 2)

	first := days[0]
	assert.True(t, first.Day.Equal(day))
	assert.Equal(t, big.Dec(), first.DepositYes.Dec())
	assert.Equal(t, uint64(5), first.DepositNo.Uint64())
	assert.Equal(t, uint64(3), first.WithdrawYes.Uint64())
	assert.Equal(t, uint64(40), first.ClaimedUsd.Uint64())
	assert.Equal(t, uint64(3), first.Activities, "FINAL must collapse redelivered rows")
	assert.Equal(t, uint64(2), first.UniqueUsers)

	assert.Equal(t, uint64(1), days[1].Activities)
	assert.Equal(t, uint64(0), days[1].UniqueUsers)
}

func TestVolumeStore_InsertEmpty(t *testing.T) {
	store := NewVolumeStore(nil)
	require.NoError(t, store.Insert(context.Background(), nil))
}
