package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// Position is the mutable per-(user, market) aggregate derived from activities.
// Corresponds to positions table; never physically deleted.
type Position struct {
	UserAddress    string
	ConditionID    string
	YesTokens      uint256.Int
	NoTokens       uint256.Int
	YieldHarvested uint256.Int
	UsdRedeemed    uint256.Int
	UpdatedAt      time.Time
}

// PositionSums are a user's totals across every position.
type PositionSums struct {
	YesTokens      uint256.Int
	NoTokens       uint256.Int
	YieldHarvested uint256.Int
}

// PortfolioFilter selects a subset of a user's positions.
type PortfolioFilter string

// Portfolio filters
const (
	PortfolioAll    PortfolioFilter = "all"
	PortfolioActive PortfolioFilter = "active"
	PortfolioEnded  PortfolioFilter = "ended"
)

// PortfolioPageSize is the fixed page size for portfolio listings.
const PortfolioPageSize = 10

// ParsePortfolioFilter validates a filter string; empty means all.
func ParsePortfolioFilter(s string) (PortfolioFilter, bool) {
	switch PortfolioFilter(s) {
	case "", PortfolioAll:
		return PortfolioAll, true
	case PortfolioActive:
		return PortfolioActive, true
	case PortfolioEnded:
		return PortfolioEnded, true
	}
	return "", false
}

// IsEnded reports whether a position counts as ended: its market is unlocked
// and both yield and USD were paid out.
func IsEnded(p *Position, status MarketStatus) bool {
	return status == MarketUnlocked && !p.YieldHarvested.IsZero() && !p.UsdRedeemed.IsZero()
}

// PortfolioEntry is a position joined with market display fields.
type PortfolioEntry struct {
	Position
	Market MarketView
}

// MarketView holds the market fields shown next to a position.
type MarketView struct {
	Question string
	Image    string
	EndDate  *time.Time
	Status   MarketStatus
	Slug     string
}
