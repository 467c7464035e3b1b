package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Activity is the immutable canonical record of one vault event.
// Corresponds to activities table; unique on (vault_address, id).
type Activity struct {
	Seq          int64        // store-assigned insertion sequence, tie-breaker for ordering
	ID           string       // natural key derived from tx hash + log index + leg
	VaultAddress string       // lowercase
	Type         ActivityType
	UserAddress  string       // lowercase, empty for lifecycle events
	ConditionID  string       // bytes32 hex, resolved from MarketIndex for campaign vaults
	MarketIndex  *int64       // campaign vault market index (nullable)
	YesAmount    uint256.Int  // deposit/withdraw YES tokens
	NoAmount     uint256.Int  // deposit/withdraw NO tokens
	YieldAmount  uint256.Int  // claim: yield harvested
	UsdAmount    uint256.Int  // claim: USD redeemed
	TxHash       string       // lowercase
	LogIndex     uint64
	BlockNumber  uint64
	Timestamp    int64        // block time, unix seconds
	CreatedAt    time.Time    // record creation time
}

// Clone returns a deep copy of the activity.
func (a *Activity) Clone() *Activity {
	c := *a
	if a.MarketIndex != nil {
		idx := *a.MarketIndex
		c.MarketIndex = &idx
	}
	return &c
}

// ActivityQuery describes a filtered, paginated activity listing.
type ActivityQuery struct {
	VaultAddress string
	Types        []ActivityType // never empty when passed to a store
	UserAddress  string         // optional
	Since        *int64         // timestamp lower bound (inclusive); wins over Skip
	Skip         int
	Limit        int
}

// ActivityPageSize is the fixed page size for activity listings.
const ActivityPageSize = 10
