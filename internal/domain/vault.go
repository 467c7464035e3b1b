package domain

import (
	"fmt"
	"strings"
)

// VaultFamily identifies which event taxonomy a vault contract emits.
type VaultFamily string

// Vault families
const (
	FamilyGeneric   VaultFamily = "generic"
	FamilyGenesis   VaultFamily = "genesis"
	FamilyPromotion VaultFamily = "promotion"
)

// ActivityType is the canonical event kind stored on an Activity.
type ActivityType string

// Activity type constants. The union of all family taxonomies.
const (
	ActivityDeposit       ActivityType = "Deposit"
	ActivityBatchDeposit  ActivityType = "BatchDeposit"
	ActivityWithdraw      ActivityType = "Withdraw"
	ActivityBatchWithdraw ActivityType = "BatchWithdraw"
	ActivityClaim         ActivityType = "Claim"
	ActivityMarketAdded   ActivityType = "MarketAdded"
	ActivityMarketEnded   ActivityType = "MarketEnded"
)

// familyTypes is the closed taxonomy per family, in display order.
var familyTypes = map[VaultFamily][]ActivityType{
	FamilyGeneric: {
		ActivityDeposit, ActivityWithdraw, ActivityClaim,
		ActivityMarketAdded, ActivityMarketEnded,
	},
	FamilyGenesis: {
		ActivityDeposit, ActivityBatchDeposit, ActivityWithdraw, ActivityBatchWithdraw,
		ActivityClaim, ActivityMarketAdded, ActivityMarketEnded,
	},
	FamilyPromotion: {
		ActivityDeposit, ActivityWithdraw, ActivityClaim,
		ActivityMarketAdded, ActivityMarketEnded,
	},
}

// ParseVaultFamily converts a config string into a VaultFamily.
func ParseVaultFamily(s string) (VaultFamily, error) {
	f := VaultFamily(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := familyTypes[f]; !ok {
		return "", fmt.Errorf("%w: unknown vault family %q", ErrValidation, s)
	}
	return f, nil
}

// Types returns a copy of the family's full allowed-type list.
func (f VaultFamily) Types() []ActivityType {
	types := familyTypes[f]
	out := make([]ActivityType, len(types))
	copy(out, types)
	return out
}

// Allows reports whether t belongs to the family's taxonomy.
func (f VaultFamily) Allows(t ActivityType) bool {
	for _, allowed := range familyTypes[f] {
		if allowed == t {
			return true
		}
	}
	return false
}

// IsCampaign reports whether markets are referenced by campaign index.
func (f VaultFamily) IsCampaign() bool {
	return f == FamilyGenesis || f == FamilyPromotion
}

// IsDeposit reports whether t increases token balances.
func (t ActivityType) IsDeposit() bool {
	return t == ActivityDeposit || t == ActivityBatchDeposit
}

// IsWithdraw reports whether t decreases token balances.
func (t ActivityType) IsWithdraw() bool {
	return t == ActivityWithdraw || t == ActivityBatchWithdraw
}

// IsLifecycle reports whether t is a market lifecycle event with no user.
func (t ActivityType) IsLifecycle() bool {
	return t == ActivityMarketAdded || t == ActivityMarketEnded
}

// DepositTypes are the activity types that count as "has ever deposited".
var DepositTypes = []ActivityType{ActivityDeposit, ActivityBatchDeposit}

// Vault is a configured vault contract.
type Vault struct {
	Address string // lowercase hex
	Family  VaultFamily
	Name    string
}

// NormalizeAddress lowercases and trims an address for storage and comparison.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
