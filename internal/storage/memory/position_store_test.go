package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

func TestPositionStore_LockCreatesOnce(t *testing.T) {
	store := New().Positions()
	ctx := context.Background()

	p, created, err := store.Lock(ctx, "0xabc", "0xc1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if !created {
		t.Error("first lock should create")
	}
	if !p.YesTokens.IsZero() {
		t.Error("new position should be zeroed")
	}

	p.YesTokens = *uint256.NewInt(60)
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	again, created, err := store.Lock(ctx, "0xabc", "0xc1")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if created {
		t.Error("second lock should not create")
	}
	if again.YesTokens.Uint64() != 60 {
		t.Errorf("yes tokens = %s, want 60", again.YesTokens.Dec())
	}
}

func TestPositionStore_GetNotFound(t *testing.T) {
	store := New().Positions()
	if _, err := store.Get(context.Background(), "0xabc", "0xnone"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPositionStore_Sums(t *testing.T) {
	store := New().Positions()
	ctx := context.Background()

	for i, amounts := range [][3]uint64{{10, 1, 5}, {20, 2, 0}} {
		p := &domain.Position{
			UserAddress:    "0xabc",
			ConditionID:    fmt.Sprintf("0xc%d", i),
			YesTokens:      *uint256.NewInt(amounts[0]),
			NoTokens:       *uint256.NewInt(amounts[1]),
			YieldHarvested: *uint256.NewInt(amounts[2]),
		}
		if err := store.Save(ctx, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := store.Save(ctx, &domain.Position{UserAddress: "0xother", ConditionID: "0xc0", YesTokens: *uint256.NewInt(999)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sums, err := store.Sums(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Sums failed: %v", err)
	}
	if sums.YesTokens.Uint64() != 30 || sums.NoTokens.Uint64() != 3 || sums.YieldHarvested.Uint64() != 5 {
		t.Errorf("sums = %s/%s/%s", sums.YesTokens.Dec(), sums.NoTokens.Dec(), sums.YieldHarvested.Dec())
	}
}

func TestPositionStore_ListPartition(t *testing.T) {
	db := New()
	ctx := context.Background()

	// m-ended: unlocked and paid out; m-unlocked: unlocked but unpaid; m-open: active.
	if err := db.Markets().End(ctx, "m-ended", domain.FamilyGeneric, time.Now()); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := db.Markets().End(ctx, "m-unlocked", domain.FamilyGeneric, time.Now()); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := db.Markets().SetMetadata(ctx, "m-open", domain.MarketMetadata{Question: "Will it rain?", Slug: "rain"}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}

	positions := []*domain.Position{
		{UserAddress: "0xabc", ConditionID: "m-ended", YieldHarvested: *uint256.NewInt(1), UsdRedeemed: *uint256.NewInt(1)},
		{UserAddress: "0xabc", ConditionID: "m-unlocked", YesTokens: *uint256.NewInt(5)},
		{UserAddress: "0xabc", ConditionID: "m-open", YesTokens: *uint256.NewInt(5)},
	}
	for _, p := range positions {
		if err := db.Positions().Save(ctx, p); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	all, total, err := db.Positions().List(ctx, "0xabc", domain.PortfolioAll, 1)
	if err != nil {
		t.Fatalf("List(all) failed: %v", err)
	}
	active, activeTotal, _ := db.Positions().List(ctx, "0xabc", domain.PortfolioActive, 1)
	ended, endedTotal, _ := db.Positions().List(ctx, "0xabc", domain.PortfolioEnded, 1)

	if total != 3 || len(all) != 3 {
		t.Errorf("all = %d (total %d), want 3", len(all), total)
	}
	if activeTotal+endedTotal != total {
		t.Errorf("active %d + ended %d != all %d", activeTotal, endedTotal, total)
	}
	if endedTotal != 1 || ended[0].ConditionID != "m-ended" {
		t.Errorf("ended = %+v", ended)
	}
	for _, e := range active {
		if e.ConditionID == "m-ended" {
			t.Error("ended position listed as active")
		}
		if e.ConditionID == "m-open" && e.Market.Question != "Will it rain?" {
			t.Errorf("market view not joined: %+v", e.Market)
		}
	}
}

func TestPositionStore_ListPaging(t *testing.T) {
	store := New().Positions()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := store.Save(ctx, &domain.Position{UserAddress: "0xabc", ConditionID: fmt.Sprintf("0xc%02d", i)}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	page1, total, err := store.List(ctx, "0xabc", domain.PortfolioAll, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	page2, _, _ := store.List(ctx, "0xabc", domain.PortfolioAll, 2)
	page3, _, _ := store.List(ctx, "0xabc", domain.PortfolioAll, 3)

	if total != 12 || len(page1) != 10 || len(page2) != 2 || len(page3) != 0 {
		t.Errorf("pages = %d/%d/%d total %d", len(page1), len(page2), len(page3), total)
	}

	seen := make(map[string]bool)
	for _, e := range append(page1, page2...) {
		if seen[e.ConditionID] {
			t.Errorf("duplicate across pages: %s", e.ConditionID)
		}
		seen[e.ConditionID] = true
	}

	if _, _, err := store.List(ctx, "0xabc", domain.PortfolioAll, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("page 0 should be invalid, got %v", err)
	}
}
