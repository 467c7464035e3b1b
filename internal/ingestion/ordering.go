package ingestion

import (
	"sort"

	"vault-indexer/internal/domain"
)

// SortActivities orders activities by (timestamp ASC, block ASC, log_index ASC,
// tx_hash ASC). Log indexes count across the whole block, so (block, log_index)
// is the on-chain order and tx_hash only breaks ties between malformed logs.
// The sort is stable, so legs of one batch event keep their array order.
func SortActivities(activities []*domain.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return compareActivities(activities[i], activities[j]) < 0
	})
}

// compareActivities returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareActivities(a, b *domain.Activity) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	if a.TxHash != b.TxHash {
		if a.TxHash < b.TxHash {
			return -1
		}
		return 1
	}
	return 0
}
