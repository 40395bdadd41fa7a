// Command backtest replays stored price history through the forecaster and
// reports the mean absolute percentage error of each forecasting method.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rewired-gh/pricewise/internal/config"
	"github.com/rewired-gh/pricewise/internal/forecast"
	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/storage"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	productID  = flag.String("product", "", "Product ID to replay; lists stored products when empty")
	platform   = flag.String("platform", "", "Platform of the product")
	horizon    = flag.Int("horizon", forecast.DefaultDaysAhead, "Points ahead to predict")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	store, err := storage.New(cfg.Storage.MaxProducts, cfg.Storage.MaxPricesPerProduct, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to open storage: %v", err)
	}

	err = run(context.Background(), os.Stdout, cfg, store, *productID, *platform, *horizon)
	if closeErr := store.Close(); closeErr != nil {
		logger.Error("Failed to close storage: %v", closeErr)
	}
	if err != nil {
		logger.Fatal("%v", err)
	}
}

// run lists stored products when productID is empty, otherwise backtests one product.
func run(ctx context.Context, w io.Writer, cfg *config.Config, store *storage.Storage, productID, platform string, horizon int) error {
	if productID == "" {
		products, err := store.Products(ctx)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		for _, p := range products {
			fmt.Fprintf(w, "%-20s %-10s %s\n", p.ProductID, p.Platform, p.Name)
		}
		return nil
	}
	if platform == "" {
		return errors.New("-platform is required with -product")
	}

	product, err := store.GetProduct(ctx, productID, platform)
	if err != nil {
		return fmt.Errorf("failed to load product %s on %s: %w", productID, platform, err)
	}

	cal, err := cfg.Calendar()
	if err != nil {
		return fmt.Errorf("invalid sale calendar: %w", err)
	}

	history, err := store.HistoryFor(ctx, product.ProductID, product.Platform, 0)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	results := replay(forecast.New(cal), history, horizon)
	printResults(w, product, len(history), horizon, results)
	return nil
}
