// Package storage persists products, price observations, and seller snapshots
// in SQLite. It is the price history source for forecasting and records every
// offer seen by the recommender.
//
// Data is bounded by rotation: each product/platform keeps its newest N price
// points, and products beyond the configured maximum are dropped least
// recently updated first.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/pricewise/internal/models"
)

// ErrNotFound is returned when a product or seller record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id TEXT NOT NULL,
    platform   TEXT NOT NULL,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (product_id, platform)
);
CREATE TABLE IF NOT EXISTS prices (
    id               TEXT PRIMARY KEY,
    product_id       TEXT NOT NULL,
    platform         TEXT NOT NULL,
    price            REAL NOT NULL,
    original_price   REAL,
    discount_percent REAL NOT NULL DEFAULT 0,
    is_sale          INTEGER NOT NULL DEFAULT 0,
    sale_name        TEXT,
    observed_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prices_product_time ON prices (product_id, platform, observed_at);
CREATE TABLE IF NOT EXISTS sellers (
    id                TEXT PRIMARY KEY,
    product_id        TEXT NOT NULL,
    platform          TEXT NOT NULL,
    name              TEXT NOT NULL,
    rating            REAL NOT NULL,
    total_ratings     INTEGER NOT NULL,
    positive_percent  REAL NOT NULL,
    verified          INTEGER NOT NULL,
    on_time_percent   REAL NOT NULL,
    observed_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sellers_product_time ON sellers (product_id, platform, observed_at);
`

// Product is a stored product listing on one platform.
type Product struct {
	ProductID string
	Platform  string
	Name      string
	URL       string
	UpdatedAt time.Time
}

// Storage is a SQLite-backed store, safe for concurrent use.
type Storage struct {
	db *sql.DB
	mu sync.RWMutex

	maxProducts         int
	maxPricesPerProduct int
	now                 func() time.Time
}

// New opens (or creates) the database at dbPath and initializes the schema.
// Use ":memory:" for an ephemeral store.
func New(maxProducts, maxPricesPerProduct int, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Storage{
		db:                  db,
		maxProducts:         maxProducts,
		maxPricesPerProduct: maxPricesPerProduct,
		now:                 time.Now,
	}, nil
}

// Close releases the database.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveOffer upserts the product, appends a price point observed at `at`, and
// appends a seller snapshot when the offer carries one.
func (s *Storage) SaveOffer(ctx context.Context, offer models.Offer, at time.Time) error {
	if err := offer.Validate(); err != nil {
		return fmt.Errorf("invalid offer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := at.UTC().UnixNano()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO products (product_id, platform, name, url, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (product_id, platform) DO UPDATE SET
			name = excluded.name, url = excluded.url, updated_at = excluded.updated_at`,
		offer.ProductID, offer.Platform, offer.Name, offer.URL, ts); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", offer.ProductID, err)
	}

	point := models.PricePoint{
		Price:           offer.Price,
		Timestamp:       at,
		Platform:        offer.Platform,
		DiscountPercent: offer.DiscountPercent,
		OriginalPrice:   offer.OriginalPrice,
		IsSale:          offer.DiscountPercent > 0,
	}
	if err := insertPrice(ctx, tx, offer.ProductID, point); err != nil {
		return err
	}

	if seller := offer.Seller; seller != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sellers (id, product_id, platform, name, rating, total_ratings,
				positive_percent, verified, on_time_percent, observed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), offer.ProductID, offer.Platform, seller.Name, seller.Rating,
			seller.TotalRatings, seller.PositivePercent, seller.Verified, seller.OnTimeShipPercent, ts); err != nil {
			return fmt.Errorf("failed to insert seller for %s: %w", offer.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit offer %s: %w", offer.ProductID, err)
	}
	return nil
}

func insertPrice(ctx context.Context, tx *sql.Tx, productID string, p models.PricePoint) error {
	var original sql.NullFloat64
	if p.OriginalPrice != nil {
		original = sql.NullFloat64{Float64: *p.OriginalPrice, Valid: true}
	}
	var saleName sql.NullString
	if p.SaleName != nil {
		saleName = sql.NullString{String: *p.SaleName, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO prices (id, product_id, platform, price, original_price, discount_percent,
			is_sale, sale_name, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), productID, p.Platform, p.Price, original, p.DiscountPercent,
		p.IsSale, saleName, p.Timestamp.UTC().UnixNano()); err != nil {
		return fmt.Errorf("failed to insert price for %s: %w", productID, err)
	}
	return nil
}

// HistoryFor returns price points for a product on a platform observed within
// window of now, oldest first. A non-positive window returns the full history.
func (s *Storage) HistoryFor(ctx context.Context, productID, platform string, window time.Duration) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var since int64
	if window > 0 {
		since = s.now().Add(-window).UTC().UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT price, original_price, discount_percent, is_sale, sale_name, observed_at
		FROM prices
		WHERE product_id = ? AND platform = ? AND observed_at >= ?
		ORDER BY observed_at ASC`, productID, platform, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", productID, err)
	}
	defer rows.Close()

	history := []models.PricePoint{}
	for rows.Next() {
		var (
			p        models.PricePoint
			original sql.NullFloat64
			saleName sql.NullString
			observed int64
		)
		if err := rows.Scan(&p.Price, &original, &p.DiscountPercent, &p.IsSale, &saleName, &observed); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		p.Platform = platform
		p.Timestamp = time.Unix(0, observed).UTC()
		if original.Valid {
			v := original.Float64
			p.OriginalPrice = &v
		}
		if saleName.Valid {
			v := saleName.String
			p.SaleName = &v
		}
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history for %s: %w", productID, err)
	}
	return history, nil
}

// LatestSeller returns the most recent seller snapshot for a product on a platform.
func (s *Storage) LatestSeller(ctx context.Context, productID, platform string) (*models.SellerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var seller models.SellerInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT name, rating, total_ratings, positive_percent, verified, on_time_percent
		FROM sellers
		WHERE product_id = ? AND platform = ?
		ORDER BY observed_at DESC
		LIMIT 1`, productID, platform).Scan(
		&seller.Name, &seller.Rating, &seller.TotalRatings,
		&seller.PositivePercent, &seller.Verified, &seller.OnTimeShipPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seller for %s on %q: %w", productID, platform, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query seller for %s: %w", productID, err)
	}
	return &seller, nil
}

// GetProduct retrieves a stored product.
func (s *Storage) GetProduct(ctx context.Context, productID, platform string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := Product{ProductID: productID, Platform: platform}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, url, updated_at FROM products WHERE product_id = ? AND platform = ?`,
		productID, platform).Scan(&p.Name, &p.URL, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s on %q: %w", productID, platform, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product %s: %w", productID, err)
	}
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

// Products returns all stored products, most recently updated first.
func (s *Storage) Products(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, platform, name, url, updated_at FROM products ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p       Product
			updated int64
		)
		if err := rows.Scan(&p.ProductID, &p.Platform, &p.Name, &p.URL, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		p.UpdatedAt = time.Unix(0, updated).UTC()
		products = append(products, p)
	}
	return products, rows.Err()
}

// CleanupOlderThan deletes price and seller rows older than age and returns
// the number of price rows removed.
func (s *Storage) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age).UTC().UnixNano()

	res, err := s.db.ExecContext(ctx, `DELETE FROM prices WHERE observed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sellers WHERE observed_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete old sellers: %w", err)
	}
	return res.RowsAffected()
}

// RotatePrices keeps only the newest maxPricesPerProduct points per product and platform.
func (s *Storage) RotatePrices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM prices WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY product_id, platform ORDER BY observed_at DESC
				) AS rn
				FROM prices
			) WHERE rn > ?
		)`, s.maxPricesPerProduct)
	if err != nil {
		return fmt.Errorf("failed to rotate prices: %w", err)
	}
	return nil
}

// RotateProducts removes the least recently updated products, with their
// prices and sellers, when the product count exceeds the limit.
func (s *Storage) RotateProducts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count <= s.maxProducts {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT product_id, platform FROM products ORDER BY updated_at ASC LIMIT ?`, count-s.maxProducts)
	if err != nil {
		return fmt.Errorf("failed to select products to remove: %w", err)
	}
	type key struct{ productID, platform string }
	var stale []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.productID, &k.platform); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan product key: %w", err)
		}
		stale = append(stale, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read products to remove: %w", err)
	}

	for _, k := range stale {
		for _, table := range []string{"prices", "sellers", "products"} {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE product_id = ? AND platform = ?`, k.productID, k.platform); err != nil {
				return fmt.Errorf("failed to remove %s for %s: %w", table, k.productID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product rotation: %w", err)
	}
	return nil
}
