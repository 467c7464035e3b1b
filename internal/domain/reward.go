package domain

import (
	"encoding/json"
	"time"
)

// RewardActivity is one ledger row of reward points. A user's balance is the
// sum of all their rows.
type RewardActivity struct {
	ID          string
	UserAddress string
	Points      int64 // may be negative for corrections
	Type        string
	Details     json.RawMessage // optional
	CreatedAt   time.Time
}

// FeedbackSubmission is one per user; its existence is the "has submitted" flag.
type FeedbackSubmission struct {
	ID           string
	UserAddress  string
	ProxyAddress string
	Answers      json.RawMessage
	CreatedAt    time.Time
}

// Reward activity types emitted by the system itself.
const (
	RewardTypeFeedback = "feedback"
	RewardTypeAdmin    = "admin"
)

// FeedbackRewardPoints is the fixed grant for a feedback submission.
const FeedbackRewardPoints = 100
