package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ycradar/internal/algolia"
	"ycradar/internal/config"
	"ycradar/internal/domain"
	"ycradar/internal/netutil"
	"ycradar/internal/radar"
	"ycradar/internal/state"
	"ycradar/internal/webhook"
)

var (
	flagWebhookURL string
	flagDataDir    string
	flagConfig     string
	flagDryRun     bool
	flagSeed       bool
	flagFullFetch  bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "ycradar",
	Short:        "Monitor the YC directory for new startups and send them to a webhook",
	Long:         "ycradar polls the YC company directory, detects listings it has not seen before and POSTs each one to a webhook. Failed deliveries are kept locally and retried on the next run.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagWebhookURL, "webhook-url", "", "webhook URL (overrides WEBHOOK_URL and config)")
	rootCmd.Flags().StringVar(&flagDataDir, "data-dir", "", "state directory (default: ./data or DATA_DIR)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "config file path (default: <data-dir>/config.yml)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "detect new companies but don't send webhooks or touch state")
	rootCmd.Flags().BoolVar(&flagSeed, "seed", false, "force re-seed: fetch all, save state, send nothing")
	rootCmd.Flags().BoolVar(&flagFullFetch, "full-fetch", false, "force a full directory fetch instead of the timestamp shortcut")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log.SetFlags(log.LstdFlags)
	if flagVerbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = os.Getenv("DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "./data"
	}

	cfgPath := flagConfig
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return fmt.Errorf("config bootstrap failed: %w", err)
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", cfgPath, err)
	}
	config.OverlayEnv(&cfg)
	if flagWebhookURL != "" {
		cfg.Webhook.URL = flagWebhookURL
	}
	if flagDataDir != "" || os.Getenv("DATA_DIR") != "" {
		cfg.App.DataDir = dataDir
	}

	mode := domain.ModeIncremental
	switch {
	case flagSeed:
		mode = domain.ModeSeed
	case flagDryRun:
		mode = domain.ModeDryRun
	case flagFullFetch:
		mode = domain.ModeFullFetch
	}

	cfg, validation := config.NormalizeAndValidate(cfg, mode == domain.ModeIncremental || mode == domain.ModeFullFetch)
	for _, w := range validation.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Printf("[config] error: %s", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	runID := uuid.NewString()
	log.Printf("[radar] starting run id=%s mode=%s data_dir=%s", runID, mode, cfg.App.DataDir)

	limiter := netutil.NewHostLimiter(cfg.Algolia.RequestsPerSecond, 2)
	fetcher := algolia.New(algolia.Config{
		AppID:           cfg.Algolia.AppID,
		APIKey:          cfg.Algolia.APIKey,
		IndexProduction: cfg.Algolia.IndexProduction,
		IndexByLaunch:   cfg.Algolia.IndexByLaunch,
		HitsPerPage:     cfg.Algolia.HitsPerPage,
		MaxRetries:      cfg.Algolia.MaxRetries,
	}, limiter)
	sender := webhook.NewSender(
		cfg.Webhook.URL,
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.MaxRetries,
		limiter,
	)

	runner := &radar.Runner{
		Fetcher: fetcher,
		Sender:  sender,
		Store:   state.NewStore(cfg.App.DataDir),
		RunID:   runID,
	}

	res, err := runner.Run(ctx, mode)
	if err != nil {
		var reqErr *algolia.RequestError
		switch {
		case errors.Is(err, state.ErrCorrupt):
			log.Printf("[radar] %v", err)
			return fmt.Errorf("persisted state is unreadable; inspect %s or re-run with --seed to rebuild the baseline", cfg.App.DataDir)
		case errors.As(err, &reqErr):
			return fmt.Errorf("directory fetch failed, state left untouched: %w", err)
		default:
			return err
		}
	}

	report(res)
	return nil
}

func report(res *radar.Result) {
	switch res.Mode {
	case domain.ModeSeed:
		fmt.Printf("Seed complete: %d companies tracked.\n", res.TotalKnown)
		return
	case domain.ModeDryRun:
		printNew(res.New)
		if len(res.New) == 0 {
			fmt.Printf("No new companies detected. Total tracked: %d\n", res.TotalKnown)
		}
		fmt.Println("[DRY RUN] No webhooks sent, state untouched.")
		return
	}

	if len(res.New) == 0 && res.Delivered == 0 && res.StillPending == 0 {
		fmt.Printf("No new companies detected. Total tracked: %d\n", res.TotalKnown)
		return
	}
	printNew(res.New)
	if res.StillPending > 0 {
		fmt.Printf("Webhook: %d sent, %d failed (saved for retry).\n", res.Delivered, res.StillPending)
	} else {
		fmt.Printf("Webhook: %d sent.\n", res.Delivered)
	}
}

func printNew(companies []domain.Company) {
	if len(companies) == 0 {
		return
	}
	fmt.Printf("Detected %d new companies:\n", len(companies))
	for _, c := range companies {
		fmt.Printf("  - %s (%s): %s\n", c.Name, c.Batch, c.OneLiner)
		if flagVerbose {
			b, _ := json.Marshal(c)
			log.Printf("[radar] payload: %s", b)
		}
	}
}
