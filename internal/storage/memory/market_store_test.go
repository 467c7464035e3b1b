package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

func TestMarketStore_ActivateAndResolveIndex(t *testing.T) {
	store := New().Markets()
	ctx := context.Background()

	idx := int64(3)
	if err := store.Activate(ctx, "0xc1", domain.FamilyGenesis, &idx); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	m, err := store.GetByCampaignIndex(ctx, domain.FamilyGenesis, 3)
	if err != nil {
		t.Fatalf("GetByCampaignIndex failed: %v", err)
	}
	if m.ConditionID != "0xc1" || m.Status != domain.MarketActive {
		t.Errorf("market = %+v", m)
	}
	if _, err := store.GetByCampaignIndex(ctx, domain.FamilyPromotion, 3); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("index is per family, got %v", err)
	}

	if err := store.Activate(ctx, "0xc2", domain.FamilyGenesis, &idx); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("reusing a campaign index should fail, got %v", err)
	}
	// Re-activating the same market with the same index is a no-op.
	if err := store.Activate(ctx, "0xc1", domain.FamilyGenesis, &idx); err != nil {
		t.Errorf("re-activate failed: %v", err)
	}
}

func TestMarketStore_StatusMovesForward(t *testing.T) {
	store := New().Markets()
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0)

	if err := store.End(ctx, "0xc1", domain.FamilyGenesis, endedAt); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	// A late MarketAdded must not move the market back to Active.
	if err := store.Activate(ctx, "0xc1", domain.FamilyGenesis, nil); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := store.End(ctx, "0xc1", domain.FamilyGenesis, endedAt.Add(time.Hour)); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	m, err := store.Get(ctx, "0xc1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.Status != domain.MarketUnlocked {
		t.Errorf("status = %s, want Unlocked", m.Status)
	}
	if m.GenesisEndedAt == nil || !m.GenesisEndedAt.Equal(endedAt) {
		t.Errorf("genesis ended at = %v, want first end time", m.GenesisEndedAt)
	}
}

func TestMarketStore_UpdateTVL(t *testing.T) {
	store := New().Markets()
	ctx := context.Background()

	add := func(tvl *uint256.Int) error {
		tvl.Add(tvl, uint256.NewInt(50))
		return nil
	}
	if err := store.UpdateTVL(ctx, "0xc1", add); err != nil {
		t.Fatalf("UpdateTVL failed: %v", err)
	}
	if err := store.UpdateTVL(ctx, "0xc1", add); err != nil {
		t.Fatalf("UpdateTVL failed: %v", err)
	}

	boom := errors.New("underflow")
	if err := store.UpdateTVL(ctx, "0xc1", func(tvl *uint256.Int) error {
		tvl.Clear()
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	m, err := store.Get(ctx, "0xc1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if m.TVL.Uint64() != 100 {
		t.Errorf("tvl = %s, want 100", m.TVL.Dec())
	}
}

func TestMarketStore_SetMetadata(t *testing.T) {
	store := New().Markets()
	ctx := context.Background()

	m, err := store.SetMetadata(ctx, "0xc1", domain.MarketMetadata{
		Question:      "Q?",
		OutcomePrices: []string{"0", "1"},
	})
	if err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if m.WinnerIndex() != 1 {
		t.Errorf("winner index = %d, want 1", m.WinnerIndex())
	}
	if m.Status != domain.MarketUninitialized {
		t.Errorf("metadata must not change status, got %s", m.Status)
	}
}
