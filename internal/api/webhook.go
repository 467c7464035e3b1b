package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vault-indexer/internal/logfilter"
)

// webhook ingests one delivered log payload. A non-2xx answer makes the
// provider redeliver.
func (h *Handler) webhook(c *gin.Context) {
	if h.Pipeline == nil {
		unavailable(c, "ingestion")
		return
	}
	var payload logfilter.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	res, err := h.Pipeline.Ingest(c.Request.Context(), payload)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":       res.Logs,
		"recorded":   res.Recorded,
		"duplicates": res.Duplicates,
		"skipped":    res.Skipped,
	})
}
