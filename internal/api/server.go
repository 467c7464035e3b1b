// Package api is the HTTP query surface of the indexer.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vault-indexer/internal/activity"
	"vault-indexer/internal/feed"
	"vault-indexer/internal/ingestion"
	"vault-indexer/internal/interest"
	"vault-indexer/internal/observability"
	"vault-indexer/internal/position"
	"vault-indexer/internal/ratelimit"
	"vault-indexer/internal/referral"
	"vault-indexer/internal/rewards"
	"vault-indexer/internal/storage"
)

// DefaultReferralCookie is the first-touch attribution cookie name.
const DefaultReferralCookie = "referral_code"

// Deps holds the services behind the routes. Optional services left nil
// answer 503 on their routes.
type Deps struct {
	Activities *activity.Service
	Portfolio  *position.Service
	Referrals  *referral.Ledger
	Rewards    *rewards.Engine
	Markets    storage.MarketStore

	Interest *interest.Service   // optional
	Pipeline *ingestion.Pipeline // optional
	Volume   storage.VolumeStore // optional
	Feed     *feed.Hub           // optional
	Limiter  ratelimit.Limiter   // optional, nil disables rate limiting

	AdminSecret    string
	StreamToken    string // empty accepts unauthenticated webhook calls
	ReferralCookie string

	Logger *zap.Logger
}

// Handler serves the /api routes.
type Handler struct {
	Deps
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestMetrics())

	h := NewHandler(deps)
	engine.Use(requestLogger(h.logger))
	h.Register(engine)
	return engine
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.ReferralCookie == "" {
		deps.ReferralCookie = DefaultReferralCookie
	}
	return &Handler{Deps: deps, logger: logger}
}

// Register mounts the routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	api := r.Group("/api")

	public := api.Group("")
	if h.Limiter != nil {
		public.Use(rateLimit(h.Limiter, h.logger))
	}
	public.GET("/activities", h.listActivities)
	public.GET("/activities/stream", h.streamActivities)
	public.GET("/portfolio", h.portfolio)
	public.GET("/markets/:conditionId", h.getMarket)
	public.GET("/referral/overview", h.referralOverview)
	public.POST("/referral/track", h.trackReferral)
	public.GET("/rewards", h.rewardsBalance)
	public.GET("/rewards/eligibility", h.eligibility)
	public.POST("/rewards/feedback", h.submitFeedback)
	public.GET("/claims/status", h.claimStatus)
	public.GET("/interest", h.getInterest)
	public.POST("/interest", h.snapshotInterest)
	public.GET("/stats/volume", h.volume)

	streams := api.Group("/streams")
	if h.StreamToken != "" {
		streams.Use(requireSecret(StreamTokenHeader, h.StreamToken))
	}
	streams.POST("/webhook", h.webhook)

	admin := api.Group("/admin", requireSecret(AdminSecretHeader, h.AdminSecret))
	admin.POST("/rewards", h.grantPoints)
	admin.POST("/rewards/batch", h.grantBatch)
	admin.PUT("/rewards/:id", h.updateGrant)
	admin.DELETE("/rewards/:id", h.deleteGrant)
	admin.GET("/feedback/export", h.exportFeedback)
	admin.POST("/referral/codes", h.createReferralCode)
	admin.POST("/referral/entries/:id/realize", h.realizeEntry)
	admin.PUT("/markets/:conditionId", h.setMarketMetadata)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
