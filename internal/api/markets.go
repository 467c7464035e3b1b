package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

type marketMetadataRequest struct {
	Question      string     `json:"question"`
	Image         string     `json:"image"`
	Slug          string     `json:"slug"`
	EndDate       *time.Time `json:"endDate"`
	OutcomePrices []string   `json:"outcomePrices"`
}

func (h *Handler) getMarket(c *gin.Context) {
	conditionID := strings.ToLower(strings.TrimSpace(c.Param("conditionId")))
	m, err := h.Markets.Get(c.Request.Context(), conditionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("%w: market %s", domain.ErrNotFound, conditionID)
		}
		fail(c, h.logger, err)
		return
	}
	Ok(c, newMarketJSON(m))
}

func (h *Handler) setMarketMetadata(c *gin.Context) {
	conditionID := strings.ToLower(strings.TrimSpace(c.Param("conditionId")))
	if !isConditionID(conditionID) {
		badRequest(c, "conditionId must be a 0x-prefixed bytes32 hex string")
		return
	}
	var req marketMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	m, err := h.Markets.SetMetadata(c.Request.Context(), conditionID, domain.MarketMetadata{
		Question:      req.Question,
		Image:         req.Image,
		Slug:          req.Slug,
		EndDate:       req.EndDate,
		OutcomePrices: req.OutcomePrices,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newMarketJSON(m))
}

func isConditionID(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
