package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

func TestPositionStore_LockSaveWithinTx(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
		p, created, err := tx.Positions().Lock(ctx, "0xabc", "0xc1")
		if err != nil {
			return err
		}
		assert.True(t, created)
		p.YesTokens = *uint256.NewInt(100)
		return tx.Positions().Save(ctx, p)
	})
	require.NoError(t, err)

	// A failing transaction leaves no trace.
	boom := errors.New("boom")
	err = db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
		p, created, err := tx.Positions().Lock(ctx, "0xabc", "0xc1")
		if err != nil {
			return err
		}
		assert.False(t, created)
		p.YesTokens = *uint256.NewInt(0)
		if err := tx.Positions().Save(ctx, p); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := db.Positions().Get(ctx, "0xabc", "0xc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), p.YesTokens.Uint64())

	_, err = db.Positions().Get(ctx, "0xabc", "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPositionStore_SumsAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, db.Markets().End(ctx, "m-ended", domain.FamilyGeneric, time.Now()))
	_, err := db.Markets().SetMetadata(ctx, "m-open", domain.MarketMetadata{Question: "Q?", Slug: "q"})
	require.NoError(t, err)

	positions := []*domain.Position{
		{UserAddress: "0xabc", ConditionID: "m-ended", YesTokens: *uint256.NewInt(1), YieldHarvested: *uint256.NewInt(5), UsdRedeemed: *uint256.NewInt(9)},
		{UserAddress: "0xabc", ConditionID: "m-open", YesTokens: *uint256.NewInt(10), NoTokens: *uint256.NewInt(4)},
		{UserAddress: "0xabc", ConditionID: "m-unknown", YesTokens: *uint256.NewInt(3)},
		{UserAddress: "0xother", ConditionID: "m-open", YesTokens: *uint256.NewInt(1000)},
	}
	for _, p := range positions {
		require.NoError(t, db.Positions().Save(ctx, p))
	}

	sums, err := db.Positions().Sums(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(14), sums.YesTokens.Uint64())
	assert.Equal(t, uint64(4), sums.NoTokens.Uint64())
	assert.Equal(t, uint64(5), sums.YieldHarvested.Uint64())

	all, total, err := db.Positions().List(ctx, "0xabc", domain.PortfolioAll, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	ended, endedTotal, err := db.Positions().List(ctx, "0xabc", domain.PortfolioEnded, 1)
	require.NoError(t, err)
	require.Equal(t, 1, endedTotal)
	assert.Equal(t, "m-ended", ended[0].ConditionID)
	assert.Equal(t, domain.MarketUnlocked, ended[0].Market.Status)

	active, activeTotal, err := db.Positions().List(ctx, "0xabc", domain.PortfolioActive, 1)
	require.NoError(t, err)
	assert.Equal(t, total, activeTotal+endedTotal)
	for _, e := range active {
		if e.ConditionID == "m-open" {
			assert.Equal(t, "Q?", e.Market.Question)
		}
	}

	empty, total, err := db.Positions().List(ctx, "0xabc", domain.PortfolioAll, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 3, total)
}

func TestPositionStore_ConcurrentLockNoLostUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
				p, _, err := tx.Positions().Lock(ctx, "0xabc", "0xc1")
				if err != nil {
					return err
				}
				// Hold the row lock long enough for the other workers to queue.
				time.Sleep(20 * time.Millisecond)
				p.YesTokens.Add(&p.YesTokens, uint256.NewInt(10))
				return tx.Positions().Save(ctx, p)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	p, err := db.Positions().Get(ctx, "0xabc", "0xc1")
	require.NoError(t, err)
	assert.Equal(t, uint64(10*workers), p.YesTokens.Uint64())
}

func TestActivityStore_ConcurrentRecordConverges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := db.Activities().Record(ctx, testActivity("a1", domain.ActivityDeposit, "0xabc", 1000))
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	inserted := 0
	for ok := range results {
		if ok {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)

	got, err := db.Activities().List(ctx, domain.ActivityQuery{
		VaultAddress: testVault,
		Types:        domain.DepositTypes,
		Limit:        domain.ActivityPageSize,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
