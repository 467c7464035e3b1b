package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vault-indexer/internal/domain"
)

// Volume window bounds, in days.
const (
	defaultVolumeDays = 7
	maxVolumeDays     = 90
)

// volume reports per-day totals for the last n UTC days, today included.
func (h *Handler) volume(c *gin.Context) {
	if h.Volume == nil {
		unavailable(c, "volume analytics")
		return
	}
	vault := domain.NormalizeAddress(c.Query("vaultAddress"))
	if vault == "" {
		badRequest(c, "vaultAddress is required")
		return
	}
	days := defaultVolumeDays
	if v := strings.TrimSpace(c.Query("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxVolumeDays {
			badRequest(c, "days must be between 1 and 90")
			return
		}
		days = n
	}

	to := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)
	rows, err := h.Volume.Daily(c.Request.Context(), vault, from, to)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	out := make([]dailyVolumeJSON, 0, len(rows))
	for _, d := range rows {
		out = append(out, newDailyVolumeJSON(d))
	}
	Ok(c, gin.H{"vaultAddress": vault, "days": days, "volume": out})
}
