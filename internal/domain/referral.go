package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCode is an attribution code owned by a referrer.
type ReferralCode struct {
	ID           string
	Code         string // unique
	OwnerAddress string
	OwnerName    string
	CreatedAt    time.Time
}

// ReferralEntryType is the direction of referred value.
type ReferralEntryType string

// Referral entry types
const (
	ReferralDeposit  ReferralEntryType = "deposit"
	ReferralWithdraw ReferralEntryType = "withdraw"
)

// ReferralEntry records referred value; RealizedValue stays nil until the
// referred value is realized, then it is updated in place.
type ReferralEntry struct {
	ID              string
	ReferralCodeID  string
	UserAddress     string
	TotalTokens     decimal.Decimal
	RealizedValue   *decimal.Decimal
	Timestamp       time.Time
	TransactionHash string
	Type            ReferralEntryType
}

// ReferralPointsPool is the fixed number of points split pro rata across codes.
const ReferralPointsPool = 25000

// ReferralOverview is the per-code points report.
type ReferralOverview struct {
	Code               *ReferralCode
	Entries            []*ReferralEntry
	TotalRealizedValue decimal.Decimal
	Points             int64
}
