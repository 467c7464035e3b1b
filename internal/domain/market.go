package domain

import (
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// MarketStatus is the lifecycle status of a prediction market vault.
// Statuses only move forward; a lower status never overwrites a higher one.
type MarketStatus int

// Market statuses, in lifecycle order.
const (
	MarketUninitialized MarketStatus = iota
	MarketActive
	MarketLocked
	MarketUnlocked
)

func (s MarketStatus) String() string {
	switch s {
	case MarketActive:
		return "Active"
	case MarketLocked:
		return "Locked"
	case MarketUnlocked:
		return "Unlocked"
	default:
		return "Uninitialized"
	}
}

// Market is the reference entity for one prediction market.
type Market struct {
	ConditionID    string
	Status         MarketStatus
	TVL            uint256.Int
	GenesisIndex   *int64
	PromotionIndex *int64
	GenesisEndedAt *time.Time

	// Display metadata, maintained by admins.
	Question      string
	Image         string
	Slug          string
	EndDate       *time.Time
	OutcomePrices []string

	UpdatedAt time.Time
}

// MarketMetadata is the admin-editable display part of a Market.
type MarketMetadata struct {
	Question      string
	Image         string
	Slug          string
	EndDate       *time.Time
	OutcomePrices []string
}

// WinnerIndex returns the index of the resolved outcome, or -1 if unresolved.
// A resolved outcome is priced at exactly the string "1".
// TODO: replace with an explicit resolution field once the market metadata
// feed exposes one; string equality misses "1.0" and similar encodings.
func (m *Market) WinnerIndex() int {
	for i, p := range m.OutcomePrices {
		if strings.TrimSpace(p) == "1" {
			return i
		}
	}
	return -1
}

// CampaignIndex returns the market's index for a campaign family, if any.
func (m *Market) CampaignIndex(f VaultFamily) *int64 {
	switch f {
	case FamilyGenesis:
		return m.GenesisIndex
	case FamilyPromotion:
		return m.PromotionIndex
	}
	return nil
}
