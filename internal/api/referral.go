package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/referral"
)

type trackRequest struct {
	UserAddress     string          `json:"userAddress"`
	TotalTokens     decimal.Decimal `json:"totalTokens"`
	Type            string          `json:"type"`
	TransactionHash string          `json:"transactionHash"`
	Timestamp       int64           `json:"timestamp"`
}

type createCodeRequest struct {
	Code         string `json:"code"`
	OwnerAddress string `json:"ownerAddress"`
	OwnerName    string `json:"ownerName"`
}

type realizeRequest struct {
	RealizedValue *decimal.Decimal `json:"realizedValue"`
}

func (h *Handler) referralOverview(c *gin.Context) {
	o, err := h.Referrals.Overview(c.Request.Context(), referral.OverviewQuery{
		CodeID:       c.Query("codeId"),
		OwnerAddress: c.Query("ownerAddress"),
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newReferralOverviewJSON(o))
}

// trackReferral attributes referred value to the code stored in the
// first-touch cookie.
func (h *Handler) trackReferral(c *gin.Context) {
	code, err := c.Cookie(h.ReferralCookie)
	if err != nil || code == "" {
		badRequest(c, "no referral attribution cookie")
		return
	}
	if decoded, err := url.QueryUnescape(code); err == nil {
		code = decoded
	}

	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in := referral.EntryInput{
		UserAddress:     req.UserAddress,
		TotalTokens:     req.TotalTokens,
		Type:            domain.ReferralEntryType(req.Type),
		TransactionHash: req.TransactionHash,
	}
	if req.Timestamp > 0 {
		in.Timestamp = time.Unix(req.Timestamp, 0)
	}

	e, err := h.Referrals.Track(c.Request.Context(), code, in)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newReferralEntryJSON(e))
}

func (h *Handler) createReferralCode(c *gin.Context) {
	var req createCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	code, err := h.Referrals.CreateCode(c.Request.Context(), req.Code, req.OwnerAddress, req.OwnerName)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newReferralCodeJSON(code))
}

func (h *Handler) realizeEntry(c *gin.Context) {
	var req realizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RealizedValue == nil {
		badRequest(c, "realizedValue is required")
		return
	}
	e, err := h.Referrals.Realize(c.Request.Context(), c.Param("id"), *req.RealizedValue)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newReferralEntryJSON(e))
}
