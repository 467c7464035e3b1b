package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/rewards"
)

type feedbackRequest struct {
	Address      string          `json:"address"`
	ProxyAddress string          `json:"proxyAddress"`
	Answers      json.RawMessage `json:"answers"`
}

type grantRequest struct {
	UserAddress string          `json:"userAddress"`
	Points      int64           `json:"points"`
	Type        string          `json:"type"`
	Details     json.RawMessage `json:"details"`
}

type batchGrantRequest struct {
	Addresses []string        `json:"addresses"`
	Points    int64           `json:"points"`
	Type      string          `json:"type"`
	Details   json.RawMessage `json:"details"`
}

type updateGrantRequest struct {
	Points  *int64          `json:"points"`
	Details json.RawMessage `json:"details"`
}

func (h *Handler) rewardsBalance(c *gin.Context) {
	b, err := h.Rewards.PointsBalance(c.Request.Context(), c.Query("address"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, gin.H{
		"address": b.Address,
		"points":  b.Points,
		"history": newRewardsJSON(b.History),
	})
}

func (h *Handler) eligibility(c *gin.Context) {
	proxy := c.Query("proxyAddress")
	ok, err := h.Rewards.Eligibility(c.Request.Context(), proxy)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, gin.H{"proxyAddress": domain.NormalizeAddress(proxy), "eligible": ok})
}

func (h *Handler) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sub, err := h.Rewards.SubmitFeedback(c.Request.Context(), req.Address, req.ProxyAddress, req.Answers)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"submission":    newFeedbackJSON(sub),
		"pointsAwarded": domain.FeedbackRewardPoints,
	})
}

func (h *Handler) claimStatus(c *gin.Context) {
	claimed, err := h.Rewards.ClaimStatus(c.Request.Context(), c.Query("vaultAddress"), c.Query("userAddress"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, gin.H{"claimed": claimed})
}

func (h *Handler) grantPoints(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	row, err := h.Rewards.GrantPoints(c.Request.Context(), req.UserAddress, rewards.Grant{
		Points:  req.Points,
		Type:    req.Type,
		Details: nullToEmpty(req.Details),
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newRewardJSON(row))
}

func (h *Handler) grantBatch(c *gin.Context) {
	var req batchGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rows, err := h.Rewards.GrantBatch(c.Request.Context(), req.Addresses, rewards.Grant{
		Points:  req.Points,
		Type:    req.Type,
		Details: nullToEmpty(req.Details),
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(rows), "rewards": newRewardsJSON(rows)})
}

func (h *Handler) updateGrant(c *gin.Context) {
	var req updateGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Points == nil {
		badRequest(c, "points is required")
		return
	}
	row, err := h.Rewards.UpdateGrant(c.Request.Context(), c.Param("id"), *req.Points, nullToEmpty(req.Details))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newRewardJSON(row))
}

func (h *Handler) deleteGrant(c *gin.Context) {
	if err := h.Rewards.DeleteGrant(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// exportFeedback streams every submission as a CSV attachment. The body is
// buffered so a store error still yields a clean error response.
func (h *Handler) exportFeedback(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Rewards.ExportFeedback(c.Request.Context(), &buf); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="feedback.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// nullToEmpty treats an explicit JSON null like an absent field.
func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}
