package ingestion

import (
	"testing"

	"vault-indexer/internal/domain"
)

func TestSortActivities(t *testing.T) {
	// Intentionally unordered activities
	activities := []*domain.Activity{
		{ID: "e", Timestamp: 200, TxHash: "0x2", LogIndex: 0},
		{ID: "b", Timestamp: 100, TxHash: "0x1", LogIndex: 1},
		{ID: "a", Timestamp: 100, TxHash: "0x1", LogIndex: 0},
		{ID: "c", Timestamp: 100, TxHash: "0x2", LogIndex: 0},
		{ID: "f", Timestamp: 300, TxHash: "0x1", LogIndex: 0},
	}

	SortActivities(activities)

	expected := []string{"a", "b", "c", "e", "f"}
	for i, id := range expected {
		if activities[i].ID != id {
			t.Errorf("Index %d: got %s, want %s", i, activities[i].ID, id)
		}
	}
}

func TestSortActivities_BatchLegsKeepOrder(t *testing.T) {
	activities := []*domain.Activity{
		{ID: "leg0", Timestamp: 100, TxHash: "0x1", LogIndex: 3},
		{ID: "leg1", Timestamp: 100, TxHash: "0x1", LogIndex: 3},
		{ID: "early", Timestamp: 50, TxHash: "0x9", LogIndex: 0},
		{ID: "leg2", Timestamp: 100, TxHash: "0x1", LogIndex: 3},
	}

	SortActivities(activities)

	expected := []string{"early", "leg0", "leg1", "leg2"}
	for i, id := range expected {
		if activities[i].ID != id {
			t.Errorf("Index %d: got %s, want %s", i, activities[i].ID, id)
		}
	}
}

func TestSortActivities_LogIndexBeforeTxHash(t *testing.T) {
	// Same block: the deposit comes first on chain but its tx hash sorts last.
	activities := []*domain.Activity{
		{ID: "withdraw", Timestamp: 100, BlockNumber: 7, TxHash: "0x01", LogIndex: 1},
		{ID: "deposit", Timestamp: 100, BlockNumber: 7, TxHash: "0xff", LogIndex: 0},
		{ID: "next-block", Timestamp: 100, BlockNumber: 8, TxHash: "0x00", LogIndex: 0},
	}

	SortActivities(activities)

	expected := []string{"deposit", "withdraw", "next-block"}
	for i, id := range expected {
		if activities[i].ID != id {
			t.Errorf("Index %d: got %s, want %s", i, activities[i].ID, id)
		}
	}
}

func TestSortActivities_Empty(t *testing.T) {
	var activities []*domain.Activity
	SortActivities(activities) // Should not panic
}
