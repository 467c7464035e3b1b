package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vault-indexer/internal/activity"
	"vault-indexer/internal/api"
	"vault-indexer/internal/feed"
	"vault-indexer/internal/ingestion"
	"vault-indexer/internal/interest"
	"vault-indexer/internal/position"
	"vault-indexer/internal/ratelimit"
	"vault-indexer/internal/referral"
	"vault-indexer/internal/rewards"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion webhook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return serve(ctx, a)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply the embedded schema before serving")
}

func serve(ctx context.Context, a *app) error {
	if err := a.openStorage(ctx, migrateOnStart); err != nil {
		return err
	}

	feedCfg := feed.DefaultConfig()
	if a.cfg.Feed.Buffer > 0 {
		feedCfg.Buffer = a.cfg.Feed.Buffer
	}
	if a.cfg.Feed.PingInterval > 0 {
		feedCfg.PingInterval = a.cfg.Feed.PingInterval
	}
	hub := feed.NewHub(feedCfg, api.EncodeActivity, a.logger.Named("feed"))

	pipeline, err := ingestion.NewPipeline(ingestion.PipelineOptions{
		DB:        a.db,
		Vaults:    a.vaults,
		Volume:    a.volume,
		Publisher: hub,
		Logger:    a.logger.Named("ingestion"),
	})
	if err != nil {
		return err
	}

	limiter, err := buildLimiter(ctx, a)
	if err != nil {
		return err
	}

	interestSvc, err := buildInterest(ctx, a)
	if err != nil {
		return err
	}

	if a.cfg.Reconcile.Enabled {
		reconciler := position.NewReconciler(a.db, a.logger.Named("reconciler"))
		stopCron, err := reconciler.Schedule(ctx, a.cfg.Reconcile.Schedule)
		if err != nil {
			return err
		}
		defer stopCron()
		a.logger.Info("reconciler scheduled", zap.String("schedule", a.cfg.Reconcile.Schedule))
	}

	gin.SetMode(a.cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		Activities:     activity.NewService(a.db.Activities(), a.vaults),
		Portfolio:      position.NewService(a.db.Positions()),
		Referrals:      referral.NewLedger(a.db.Referrals(), a.cfg.Referral.Pool),
		Rewards:        rewards.NewEngine(a.db, a.logger.Named("rewards")),
		Markets:        a.db.Markets(),
		Interest:       interestSvc,
		Pipeline:       pipeline,
		Volume:         a.volume,
		Feed:           hub,
		Limiter:        limiter,
		AdminSecret:    a.cfg.Admin.Secret,
		StreamToken:    a.cfg.Stream.Token,
		ReferralCookie: a.cfg.Referral.CookieName,
		Logger:         a.logger.Named("api"),
	})

	srv := &http.Server{
		Addr:         a.cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", srv.Addr), zap.Int("vaults", len(a.vaults)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	hub.Close()
	return nil
}

func buildLimiter(ctx context.Context, a *app) (ratelimit.Limiter, error) {
	rl := a.cfg.RateLimit
	if rl.Backend != "redis" {
		return ratelimit.NewFixedWindow(rl.Limit, rl.Window), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rl.RedisAddr,
		Password: rl.RedisPassword,
		DB:       rl.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return ratelimit.NewRedis(client, rl.Prefix, rl.Limit, rl.Window), nil
}

// buildInterest returns nil when no RPC endpoint is configured; the
// interest routes then answer 503.
func buildInterest(ctx context.Context, a *app) (*interest.Service, error) {
	if a.cfg.Chain.RPCURL == "" {
		a.logger.Warn("chain.rpc_url not set; interest snapshots disabled")
		return nil, nil
	}
	client, err := ethclient.DialContext(ctx, a.cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	reader, err := interest.NewChainReader(client, a.cfg.Chain.RPS, a.cfg.Chain.Burst)
	if err != nil {
		return nil, err
	}
	return interest.NewService(a.db.Interests(), reader, a.cfg.CampaignVaults(), a.logger.Named("interest")), nil
}
