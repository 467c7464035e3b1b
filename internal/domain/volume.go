package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// DailyVolume is a per-day activity rollup for one vault.
type DailyVolume struct {
	Day         time.Time
	DepositYes  uint256.Int
	DepositNo   uint256.Int
	WithdrawYes uint256.Int
	WithdrawNo  uint256.Int
	ClaimedUsd  uint256.Int
	Activities  uint64
	UniqueUsers uint64
}
