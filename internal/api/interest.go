package api

import (
	"github.com/gin-gonic/gin"
)

type interestRequest struct {
	VaultAddress string `json:"vaultAddress"`
	UserAddress  string `json:"userAddress"`
}

func (h *Handler) getInterest(c *gin.Context) {
	if h.Interest == nil {
		unavailable(c, "interest")
		return
	}
	in, err := h.Interest.Get(c.Request.Context(), c.Query("vaultAddress"), c.Query("userAddress"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newInterestJSON(in))
}

// snapshotInterest reads the current on-chain stake and stores it.
func (h *Handler) snapshotInterest(c *gin.Context) {
	if h.Interest == nil {
		unavailable(c, "interest")
		return
	}
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	in, err := h.Interest.Snapshot(c.Request.Context(), req.VaultAddress, req.UserAddress)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newInterestJSON(in))
}
