package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/position"
)

// Token and USD amounts are rendered as base-10 strings; they exceed the
// range of a JSON number.

type activityJSON struct {
	ID              string    `json:"id"`
	VaultAddress    string    `json:"vaultAddress"`
	Type            string    `json:"type"`
	UserAddress     string    `json:"userAddress,omitempty"`
	ConditionID     string    `json:"conditionId"`
	MarketIndex     *int64    `json:"marketIndex,omitempty"`
	YesAmount       string    `json:"yesAmount"`
	NoAmount        string    `json:"noAmount"`
	YieldAmount     string    `json:"yieldAmount"`
	UsdAmount       string    `json:"usdAmount"`
	TransactionHash string    `json:"transactionHash"`
	LogIndex        uint64    `json:"logIndex"`
	BlockNumber     uint64    `json:"blockNumber"`
	Timestamp       int64     `json:"timestamp"`
	CreatedAt       time.Time `json:"createdAt"`
}

func newActivityJSON(a *domain.Activity) activityJSON {
	return activityJSON{
		ID:              a.ID,
		VaultAddress:    a.VaultAddress,
		Type:            string(a.Type),
		UserAddress:     a.UserAddress,
		ConditionID:     a.ConditionID,
		MarketIndex:     a.MarketIndex,
		YesAmount:       a.YesAmount.Dec(),
		NoAmount:        a.NoAmount.Dec(),
		YieldAmount:     a.YieldAmount.Dec(),
		UsdAmount:       a.UsdAmount.Dec(),
		TransactionHash: a.TxHash,
		LogIndex:        a.LogIndex,
		BlockNumber:     a.BlockNumber,
		Timestamp:       a.Timestamp,
		CreatedAt:       a.CreatedAt,
	}
}

// EncodeActivity renders an activity the way the listing endpoint does.
// It is the feed.Encoder used for websocket messages.
func EncodeActivity(a *domain.Activity) ([]byte, error) {
	return json.Marshal(newActivityJSON(a))
}

type marketViewJSON struct {
	Question string     `json:"question"`
	Image    string     `json:"image"`
	EndDate  *time.Time `json:"endDate"`
	Status   string     `json:"status"`
	Slug     string     `json:"slug"`
}

type depositJSON struct {
	UserAddress    string         `json:"userAddress"`
	ConditionID    string         `json:"conditionId"`
	YesTokens      string         `json:"yesTokens"`
	NoTokens       string         `json:"noTokens"`
	YieldHarvested string         `json:"yieldHarvested"`
	UsdRedeemed    string         `json:"usdRedeemed"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Market         marketViewJSON `json:"market"`
}

type portfolioJSON struct {
	YesSum       string        `json:"yesSum"`
	NoSum        string        `json:"noSum"`
	HarvestedSum string        `json:"harvestedSum"`
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalCount   int           `json:"totalCount"`
	Deposits     []depositJSON `json:"deposits"`
}

func newPortfolioJSON(p *position.Portfolio) portfolioJSON {
	out := portfolioJSON{
		YesSum:       p.Sums.YesTokens.Dec(),
		NoSum:        p.Sums.NoTokens.Dec(),
		HarvestedSum: p.Sums.YieldHarvested.Dec(),
		Page:         p.Page,
		PageSize:     p.PageSize,
		TotalCount:   p.TotalCount,
		Deposits:     make([]depositJSON, 0, len(p.Entries)),
	}
	for _, e := range p.Entries {
		out.Deposits = append(out.Deposits, depositJSON{
			UserAddress:    e.UserAddress,
			ConditionID:    e.ConditionID,
			YesTokens:      e.YesTokens.Dec(),
			NoTokens:       e.NoTokens.Dec(),
			YieldHarvested: e.YieldHarvested.Dec(),
			UsdRedeemed:    e.UsdRedeemed.Dec(),
			UpdatedAt:      e.UpdatedAt,
			Market: marketViewJSON{
				Question: e.Market.Question,
				Image:    e.Market.Image,
				EndDate:  e.Market.EndDate,
				Status:   e.Market.Status.String(),
				Slug:     e.Market.Slug,
			},
		})
	}
	return out
}

type referralCodeJSON struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	OwnerAddress string    `json:"ownerAddress"`
	OwnerName    string    `json:"ownerName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newReferralCodeJSON(c *domain.ReferralCode) *referralCodeJSON {
	if c == nil {
		return nil
	}
	return &referralCodeJSON{
		ID:           c.ID,
		Code:         c.Code,
		OwnerAddress: c.OwnerAddress,
		OwnerName:    c.OwnerName,
		CreatedAt:    c.CreatedAt,
	}
}

type referralEntryJSON struct {
	ID              string           `json:"id"`
	ReferralCodeID  string           `json:"referralCodeId"`
	UserAddress     string           `json:"userAddress"`
	TotalTokens     decimal.Decimal  `json:"totalTokens"`
	RealizedValue   *decimal.Decimal `json:"realizedValue"`
	Timestamp       time.Time        `json:"timestamp"`
	TransactionHash string           `json:"transactionHash,omitempty"`
	Type            string           `json:"type"`
}

func newReferralEntryJSON(e *domain.ReferralEntry) referralEntryJSON {
	return referralEntryJSON{
		ID:              e.ID,
		ReferralCodeID:  e.ReferralCodeID,
		UserAddress:     e.UserAddress,
		TotalTokens:     e.TotalTokens,
		RealizedValue:   e.RealizedValue,
		Timestamp:       e.Timestamp,
		TransactionHash: e.TransactionHash,
		Type:            string(e.Type),
	}
}

type referralOverviewJSON struct {
	Code               *referralCodeJSON   `json:"code"`
	Entries            []referralEntryJSON `json:"entries"`
	TotalRealizedValue decimal.Decimal     `json:"totalRealizedValue"`
	Points             int64               `json:"points"`
}

func newReferralOverviewJSON(o *domain.ReferralOverview) referralOverviewJSON {
	out := referralOverviewJSON{
		Code:               newReferralCodeJSON(o.Code),
		Entries:            make([]referralEntryJSON, 0, len(o.Entries)),
		TotalRealizedValue: o.TotalRealizedValue,
		Points:             o.Points,
	}
	for _, e := range o.Entries {
		out.Entries = append(out.Entries, newReferralEntryJSON(e))
	}
	return out
}

type rewardJSON struct {
	ID          string          `json:"id"`
	UserAddress string          `json:"userAddress"`
	Points      int64           `json:"points"`
	Type        string          `json:"type"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func newRewardJSON(r *domain.RewardActivity) rewardJSON {
	return rewardJSON{
		ID:          r.ID,
		UserAddress: r.UserAddress,
		Points:      r.Points,
		Type:        r.Type,
		Details:     r.Details,
		CreatedAt:   r.CreatedAt,
	}
}

func newRewardsJSON(rows []*domain.RewardActivity) []rewardJSON {
	out := make([]rewardJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, newRewardJSON(r))
	}
	return out
}

type feedbackJSON struct {
	ID           string          `json:"id"`
	UserAddress  string          `json:"userAddress"`
	ProxyAddress string          `json:"proxyAddress"`
	Answers      json.RawMessage `json:"answers,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func newFeedbackJSON(f *domain.FeedbackSubmission) feedbackJSON {
	return feedbackJSON{
		ID:           f.ID,
		UserAddress:  f.UserAddress,
		ProxyAddress: f.ProxyAddress,
		Answers:      f.Answers,
		CreatedAt:    f.CreatedAt,
	}
}

type interestJSON struct {
	VaultAddress string    `json:"vaultAddress"`
	UserAddress  string    `json:"userAddress"`
	TotalTokens  string    `json:"totalTokens"`
	TotalUsd     string    `json:"totalUsd"`
	EligibleUsd  string    `json:"eligibleUsd"`
	SnapshotAt   time.Time `json:"snapshotAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newInterestJSON(in *domain.Interest) interestJSON {
	return interestJSON{
		VaultAddress: in.VaultAddress,
		UserAddress:  in.UserAddress,
		TotalTokens:  in.TotalTokens.Dec(),
		TotalUsd:     in.TotalUsd.Dec(),
		EligibleUsd:  in.EligibleUsd.Dec(),
		SnapshotAt:   in.SnapshotAt,
		UpdatedAt:    in.UpdatedAt,
	}
}

type dailyVolumeJSON struct {
	Day         string `json:"day"`
	DepositYes  string `json:"depositYes"`
	DepositNo   string `json:"depositNo"`
	WithdrawYes string `json:"withdrawYes"`
	WithdrawNo  string `json:"withdrawNo"`
	ClaimedUsd  string `json:"claimedUsd"`
	Activities  uint64 `json:"activities"`
	UniqueUsers uint64 `json:"uniqueUsers"`
}

func newDailyVolumeJSON(d *domain.DailyVolume) dailyVolumeJSON {
	return dailyVolumeJSON{
		Day:         d.Day.UTC().Format("2006-01-02"),
		DepositYes:  d.DepositYes.Dec(),
		DepositNo:   d.DepositNo.Dec(),
		WithdrawYes: d.WithdrawYes.Dec(),
		WithdrawNo:  d.WithdrawNo.Dec(),
		ClaimedUsd:  d.ClaimedUsd.Dec(),
		Activities:  d.Activities,
		UniqueUsers: d.UniqueUsers,
	}
}

type marketJSON struct {
	ConditionID    string     `json:"conditionId"`
	Status         string     `json:"status"`
	TVL            string     `json:"tvl"`
	GenesisIndex   *int64     `json:"genesisIndex,omitempty"`
	PromotionIndex *int64     `json:"promotionIndex,omitempty"`
	Question       string     `json:"question"`
	Image          string     `json:"image"`
	Slug           string     `json:"slug"`
	EndDate        *time.Time `json:"endDate"`
	OutcomePrices  []string   `json:"outcomePrices"`
	WinnerIndex    int        `json:"winnerIndex"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func newMarketJSON(m *domain.Market) marketJSON {
	prices := m.OutcomePrices
	if prices == nil {
		prices = []string{}
	}
	return marketJSON{
		ConditionID:    m.ConditionID,
		Status:         m.Status.String(),
		TVL:            m.TVL.Dec(),
		GenesisIndex:   m.GenesisIndex,
		PromotionIndex: m.PromotionIndex,
		Question:       m.Question,
		Image:          m.Image,
		Slug:           m.Slug,
		EndDate:        m.EndDate,
		OutcomePrices:  prices,
		WinnerIndex:    m.WinnerIndex(),
		UpdatedAt:      m.UpdatedAt,
	}
}
