package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rewired-gh/pricewise/internal/catalog"
	"github.com/rewired-gh/pricewise/internal/config"
	"github.com/rewired-gh/pricewise/internal/forecast"
	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/recommender"
	"github.com/rewired-gh/pricewise/internal/storage"
	"github.com/rewired-gh/pricewise/internal/telegram"
	"github.com/rewired-gh/pricewise/internal/watch"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	query      = flag.String("query", "", "Search once for this query and print the recommendation")
	watchMode  = flag.Bool("watch", false, "Run the watch loop over watch.queries")
	notify     = flag.Bool("notify", false, "Also send the one-shot recommendation to Telegram")
)

var errUsage = errors.New("one of -query or -watch is required")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	if err := run(cfg); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		logger.Fatal("%v", err)
	}
}

// run owns every resource it opens, so deferred cleanup completes before main exits.
func run(cfg *config.Config) error {
	if *query == "" && !*watchMode && !cfg.Watch.Enabled {
		return errUsage
	}

	// Initialize storage
	if cfg.Storage.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := storage.New(
		cfg.Storage.MaxProducts,
		cfg.Storage.MaxPricesPerProduct,
		cfg.Storage.DBPath,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	// Initialize offer feed client
	catalogClient := catalog.NewClient(
		cfg.Catalog.BaseURL,
		cfg.Catalog.Platforms,
		cfg.Catalog.MaxResults,
		cfg.Catalog.Timeout,
		catalog.ClientConfig{
			MaxRetries:     cfg.Catalog.MaxRetries,
			RetryDelayBase: cfg.Catalog.RetryDelayBase,
		},
	)

	cal, err := cfg.Calendar()
	if err != nil {
		return fmt.Errorf("invalid sale calendar: %w", err)
	}

	engine := recommender.New(catalogClient, store, recommender.FallbackInsights{}, forecast.New(cal), recommender.Options{
		HistoryWindow: cfg.Analysis.HistoryWindow(),
		ForecastDays:  cfg.Analysis.ForecastDays,
		Recorder:      store,
		Sellers:       store,
	})

	// Initialize Telegram client
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if *query != "" {
		return runOnce(ctx, engine, telegramClient, *query)
	}

	return runWatch(ctx, cfg, engine, store, telegramClient)
}

func runOnce(ctx context.Context, engine *recommender.Recommender, telegramClient *telegram.Client, q string) error {
	rec, err := engine.Recommend(ctx, q)
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	printReport(os.Stdout, rec)

	if *notify {
		if telegramClient == nil {
			logger.Warn("-notify given but Telegram is disabled")
			return nil
		}
		if err := telegramClient.SendRecommendation(rec); err != nil {
			return fmt.Errorf("failed to send recommendation: %w", err)
		}
		logger.Info("Sent recommendation to Telegram")
	}
	return nil
}

// checkWatch rejects settings the watch loop cannot run with.
func checkWatch(wc config.WatchConfig) error {
	if wc.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %v", wc.Interval)
	}
	if len(wc.Queries) == 0 {
		logger.Warn("Watch loop started with no watch.queries; cycles will do nothing")
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, engine *recommender.Recommender, store *storage.Storage, telegramClient *telegram.Client) error {
	if err := checkWatch(cfg.Watch); err != nil {
		return err
	}

	var notifier watch.Notifier
	if telegramClient != nil {
		notifier = telegramClient
	}
	watcher := watch.New(engine, notifier, cfg.Watch.Queries, cfg.Analysis.MinPriceDropPercent, cfg.Watch.Cooldown)

	logger.Info("Starting watch loop (interval: %v, cooldown: %v, queries: %d, min_drop: %.1f%%)",
		cfg.Watch.Interval, cfg.Watch.Cooldown, len(cfg.Watch.Queries), cfg.Analysis.MinPriceDropPercent)

	ticker := time.NewTicker(cfg.Watch.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	runCycle := func() {
		start := time.Now()
		_, _, err := watcher.RunCycle(ctx)
		if err != nil {
			consecutiveFailures++
			logger.Error("Watch cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
		logger.Info("Watch cycle completed in %v", time.Since(start))
	}

	// Run initial cycle immediately
	runCycle()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil

		case <-ticker.C:
			runCycle()

			// Rotate old data
			if err := store.RotatePrices(ctx); err != nil {
				logger.Warn("Failed to rotate prices: %v", err)
			}
			if err := store.RotateProducts(ctx); err != nil {
				logger.Warn("Failed to rotate products: %v", err)
			}
			if removed, err := store.CleanupOlderThan(ctx, cfg.Storage.Retention()); err != nil {
				logger.Warn("Failed to clean up old prices: %v", err)
			} else if removed > 0 {
				logger.Debug("Removed %d expired price points", removed)
			}
		}
	}
}
