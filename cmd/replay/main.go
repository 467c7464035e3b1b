// Command replay feeds saved stream payloads through the ingestion
// pipeline. Replaying is idempotent: already recorded activities are
// reported as duplicates.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vault-indexer/internal/config"
	"vault-indexer/internal/ingestion"
	"vault-indexer/internal/logfilter"
	"vault-indexer/internal/logging"
	"vault-indexer/internal/storage"
	chstore "vault-indexer/internal/storage/clickhouse"
	"vault-indexer/internal/storage/memory"
	pgstore "vault-indexer/internal/storage/postgres"
)

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:          "replay [payload.json...]",
	Short:        "Ingest saved stream payloads",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "ingest into in-memory storage regardless of the configured backend")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, files []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	vaults, err := cfg.VaultList()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := ingestion.PipelineOptions{
		DB:     db,
		Vaults: vaults,
		Logger: logger.Named("ingestion"),
	}
	if cfg.ClickHouse.Enabled && !dryRun {
		conn, err := chstore.Open(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		opts.Volume = chstore.NewVolumeStore(conn)
	}

	pipeline, err := ingestion.NewPipeline(opts)
	if err != nil {
		return err
	}

	var total ingestion.Result
	for _, file := range files {
		payload, err := readPayload(file)
		if err != nil {
			return err
		}
		res, err := pipeline.Ingest(ctx, payload)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", file, err)
		}
		logger.Info("payload replayed",
			zap.String("file", file),
			zap.Int("recorded", res.Recorded),
			zap.Int("duplicates", res.Duplicates),
			zap.Int("skipped", res.Skipped),
		)
		total.Logs += res.Logs
		total.Recorded += res.Recorded
		total.Duplicates += res.Duplicates
		total.Skipped += res.Skipped
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]int{
		"files":      len(files),
		"logs":       total.Logs,
		"recorded":   total.Recorded,
		"duplicates": total.Duplicates,
		"skipped":    total.Skipped,
	})
}

func openDatabase(ctx context.Context, cfg config.Config) (storage.Database, error) {
	if dryRun || cfg.Storage.Backend != "postgres" {
		return memory.New(), nil
	}
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return pgstore.NewDB(pool), nil
}

func readPayload(path string) (logfilter.Payload, error) {
	var payload logfilter.Payload
	f, err := os.Open(path)
	if err != nil {
		return payload, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&payload); err != nil {
		return payload, fmt.Errorf("decode payload %s: %w", path, err)
	}
	return payload, nil
}
