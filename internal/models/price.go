// Package models defines the core domain entities for pricewise.
// These models represent observed prices, competing offers, and the analysis,
// forecast, and recommendation results derived from them.
// All input models include built-in validation to ensure data integrity
// before they reach the analysis engine or the store.
//
// Terminology:
//   - Offer: one seller's listing for a search query on one platform.
//   - PricePoint: one observed price of a product on a platform at a moment.
//   - Platform: the marketplace an offer comes from ("amazon", "flipkart", ...).
package models

import (
	"errors"
	"time"
)

// PriceTrend classifies the direction of a price history
type PriceTrend string

const (
	TrendIncreasing PriceTrend = "increasing"
	TrendDecreasing PriceTrend = "decreasing"
	TrendStable     PriceTrend = "stable"
	TrendVolatile   PriceTrend = "volatile"
)

// PricePosition buckets the current price against the history
type PricePosition string

const (
	PositionExcellent PricePosition = "excellent"
	PositionGood      PricePosition = "good"
	PositionAverage   PricePosition = "average"
	PositionHigh      PricePosition = "high"
)

// PricePoint represents a single observed price of a product on a platform
type PricePoint struct {
	Price           float64   `json:"price"`
	Timestamp       time.Time `json:"timestamp"`
	Platform        string    `json:"platform"`
	DiscountPercent float64   `json:"discount_percent"`
	OriginalPrice   *float64  `json:"original_price,omitempty"` // list price before discount, if known
	IsSale          bool      `json:"is_sale"`
	SaleName        *string   `json:"sale_name,omitempty"`
}

// Validate checks that all price point fields are valid
func (p *PricePoint) Validate() error {
	if p.Price < 0 {
		return errors.New("price must not be negative")
	}
	if p.OriginalPrice != nil && *p.OriginalPrice < p.Price {
		return errors.New("original price must be >= price")
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return errors.New("discount percent must be between 0 and 100")
	}
	if p.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	if p.SaleName != nil && *p.SaleName == "" {
		return errors.New("sale name must not be empty when set")
	}
	return nil
}

// PriceAnalysis summarises a window of price history.
// It is a pure function of the history it was computed from.
type PriceAnalysis struct {
	CurrentPrice float64      `json:"current_price"`
	MinPrice     float64      `json:"min_price"`
	MaxPrice     float64      `json:"max_price"`
	AvgPrice     float64      `json:"avg_price"`
	MedianPrice  float64      `json:"median_price"`
	Volatility   float64      `json:"volatility"` // sample standard deviation
	Trend        PriceTrend   `json:"trend"`
	DaysAnalyzed int          `json:"days_analyzed"`
	History      []PricePoint `json:"history"`
}

// Position reports where the current price sits relative to the historical
// minimum and average.
func (a *PriceAnalysis) Position() PricePosition {
	switch {
	case a.CurrentPrice <= a.MinPrice*1.05:
		return PositionExcellent
	case a.CurrentPrice <= a.AvgPrice*0.95:
		return PositionGood
	case a.CurrentPrice <= a.AvgPrice*1.05:
		return PositionAverage
	default:
		return PositionHigh
	}
}
