// Package rewards keeps the reward points ledger, feedback grants and
// claim status.
package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Engine is the rewards service.
type Engine struct {
	db     storage.Database
	newID  func() string
	logger *zap.Logger
}

// NewEngine creates a new Engine.
func NewEngine(db storage.Database, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{db: db, newID: uuid.NewString, logger: logger}
}

// Eligibility reports whether the proxy has ever deposited into any vault.
func (e *Engine) Eligibility(ctx context.Context, proxy string) (bool, error) {
	proxy = domain.NormalizeAddress(proxy)
	if proxy == "" {
		return false, fmt.Errorf("%w: proxyAddress is required", domain.ErrValidation)
	}
	return eligible(ctx, e.db, proxy)
}

func eligible(ctx context.Context, s storage.Stores, proxy string) (bool, error) {
	ok, err := s.Activities().HasDeposit(ctx, proxy)
	if err != nil {
		return false, fmt.Errorf("check deposits: %w", err)
	}
	return ok, nil
}

// SubmitFeedback stores a user's one feedback submission and grants
// domain.FeedbackRewardPoints in the same transaction. An empty proxy
// means the address is its own proxy.
func (e *Engine) SubmitFeedback(ctx context.Context, address, proxy string, answers json.RawMessage) (*domain.FeedbackSubmission, error) {
	address = domain.NormalizeAddress(address)
	proxy = domain.NormalizeAddress(proxy)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}
	if proxy == "" {
		proxy = address
	}
	if len(answers) == 0 || !json.Valid(answers) {
		return nil, fmt.Errorf("%w: answers must be valid JSON", domain.ErrValidation)
	}

	sub := &domain.FeedbackSubmission{
		ID:           e.newID(),
		UserAddress:  address,
		ProxyAddress: proxy,
		Answers:      answers,
	}

	err := e.db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
		exists, err := tx.Feedback().Exists(ctx, address)
		if err != nil {
			return fmt.Errorf("check feedback: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: feedback already submitted", domain.ErrConflict)
		}

		ok, err := eligible(ctx, tx, proxy)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s has never deposited", domain.ErrNotEligible, proxy)
		}

		if err := tx.Feedback().Insert(ctx, sub); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("%w: feedback already submitted", domain.ErrConflict)
			}
			return fmt.Errorf("insert feedback: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"feedbackId": sub.ID})
		return tx.Rewards().Insert(ctx, &domain.RewardActivity{
			ID:          e.newID(),
			UserAddress: address,
			Points:      domain.FeedbackRewardPoints,
			Type:        domain.RewardTypeFeedback,
			Details:     details,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("feedback submitted", zap.String("user", address), zap.String("proxy", proxy))
	return sub, nil
}

// Balance is a user's points total with its ledger rows.
type Balance struct {
	Address string
	Points  int64
	History []*domain.RewardActivity
}

// PointsBalance sums a user's ledger rows; 0 when there are none.
func (e *Engine) PointsBalance(ctx context.Context, address string) (*Balance, error) {
	address = domain.NormalizeAddress(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}

	points, err := e.db.Rewards().Balance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}
	history, err := e.db.Rewards().History(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &Balance{Address: address, Points: points, History: history}, nil
}

// ClaimStatus reports whether the user ever claimed from the vault.
func (e *Engine) ClaimStatus(ctx context.Context, vault, user string) (bool, error) {
	vault = domain.NormalizeAddress(vault)
	user = domain.NormalizeAddress(user)
	if vault == "" || user == "" {
		return false, fmt.Errorf("%w: vaultAddress and userAddress are required", domain.ErrValidation)
	}

	ok, err := e.db.Activities().HasType(ctx, vault, user, []domain.ActivityType{domain.ActivityClaim})
	if err != nil {
		return false, fmt.Errorf("check claims: %w", err)
	}
	return ok, nil
}

// Grant is an admin-issued ledger row.
type Grant struct {
	Points  int64
	Type    string // defaults to domain.RewardTypeAdmin
	Details json.RawMessage
}

func (g Grant) validate() error {
	if len(g.Details) > 0 && !json.Valid(g.Details) {
		return fmt.Errorf("%w: details must be valid JSON", domain.ErrValidation)
	}
	return nil
}

func (g Grant) row(id, user string) *domain.RewardActivity {
	typ := strings.TrimSpace(g.Type)
	if typ == "" {
		typ = domain.RewardTypeAdmin
	}
	return &domain.RewardActivity{ID: id, UserAddress: user, Points: g.Points, Type: typ, Details: g.Details}
}

// GrantPoints appends one admin ledger row.
func (e *Engine) GrantPoints(ctx context.Context, user string, g Grant) (*domain.RewardActivity, error) {
	user = domain.NormalizeAddress(user)
	if user == "" {
		return nil, fmt.Errorf("%w: userAddress is required", domain.ErrValidation)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	r := g.row(e.newID(), user)
	if err := e.db.Rewards().Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	e.logger.Info("points granted", zap.String("user", user), zap.Int64("points", r.Points), zap.String("type", r.Type))
	return r, nil
}

// GrantBatch appends the same grant for every address in one transaction.
// Duplicate addresses in the list each receive a row.
func (e *Engine) GrantBatch(ctx context.Context, users []string, g Grant) ([]*domain.RewardActivity, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: addresses are required", domain.ErrValidation)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	rows := make([]*domain.RewardActivity, 0, len(users))
	for _, u := range users {
		u = domain.NormalizeAddress(u)
		if u == "" {
			return nil, fmt.Errorf("%w: empty address in batch", domain.ErrValidation)
		}
		rows = append(rows, g.row(e.newID(), u))
	}

	err := e.db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
		for _, r := range rows {
			if err := tx.Rewards().Insert(ctx, r); err != nil {
				return fmt.Errorf("insert reward for %s: %w", r.UserAddress, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("batch points granted", zap.Int("rows", len(rows)), zap.Int64("points", g.Points))
	return rows, nil
}

// UpdateGrant replaces points and details of one row. Nil details keep the
// stored value.
func (e *Engine) UpdateGrant(ctx context.Context, id string, points int64, details json.RawMessage) (*domain.RewardActivity, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if len(details) > 0 && !json.Valid(details) {
		return nil, fmt.Errorf("%w: details must be valid JSON", domain.ErrValidation)
	}

	r, err := e.db.Rewards().Update(ctx, id, points, details)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: reward activity %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return r, nil
}

// DeleteGrant removes one row.
func (e *Engine) DeleteGrant(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	err := e.db.Rewards().Delete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: reward activity %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}
