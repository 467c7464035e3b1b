package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Interest is the latest known stakeable value of a user in a campaign vault.
// Upserted on (vault_address, user_address); not a ledger.
type Interest struct {
	VaultAddress string
	UserAddress  string
	TotalTokens  uint256.Int
	TotalUsd     uint256.Int
	EligibleUsd  uint256.Int
	SnapshotAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
