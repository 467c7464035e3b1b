package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vault-indexer/internal/activity"
	"vault-indexer/internal/domain"
)

func (h *Handler) listActivities(c *gin.Context) {
	q := activity.Query{
		VaultAddress: c.Query("vaultAddress"),
		UserAddress:  c.Query("userAddress"),
		Types:        queryList(c, "types"),
	}
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "since must be a unix timestamp")
			return
		}
		q.Since = &since
	}
	if v := strings.TrimSpace(c.Query("skip")); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			badRequest(c, "skip must be a non-negative integer")
			return
		}
		q.Skip = skip
	}

	items, err := h.Activities.List(c.Request.Context(), q)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	out := make([]activityJSON, 0, len(items))
	for _, a := range items {
		out = append(out, newActivityJSON(a))
	}
	Ok(c, out)
}

func (h *Handler) streamActivities(c *gin.Context) {
	if h.Feed == nil {
		unavailable(c, "activity feed")
		return
	}
	vault := domain.NormalizeAddress(c.Query("vaultAddress"))
	if vault == "" {
		badRequest(c, "vaultAddress is required")
		return
	}
	if _, ok := h.Activities.Family(vault); !ok {
		badRequest(c, "unknown vault "+vault)
		return
	}
	h.Feed.ServeWS(c.Writer, c.Request, vault)
}

// queryList accepts both name[]=a&name[]=b and name=a,b forms.
func queryList(c *gin.Context, name string) []string {
	raw := append(c.QueryArray(name+"[]"), c.QueryArray(name)...)
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
