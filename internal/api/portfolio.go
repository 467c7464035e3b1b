package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vault-indexer/internal/domain"
)

func (h *Handler) portfolio(c *gin.Context) {
	page := 1
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "page must be an integer")
			return
		}
		page = n
	}

	p, err := h.Portfolio.Portfolio(c.Request.Context(), c.Query("address"), domain.PortfolioFilter(c.Query("filter")), page)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	Ok(c, newPortfolioJSON(p))
}
