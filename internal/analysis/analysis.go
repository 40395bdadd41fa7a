// Package analysis reduces price histories to summary statistics and a trend
// classification, and provides the cross-platform comparison and savings
// helpers used when presenting a recommendation.
//
// Trend classification fits an ordinary least squares line to price versus
// observation index:
//
//	relative volatility = stdev(prices) / mean(prices)
//	volatile    if relative volatility > 0.15 (overrides the slope)
//	increasing  if slope >  0.01 × mean
//	decreasing  if slope < -0.01 × mean
//	stable      otherwise, or with fewer than 3 points
//
// Every function here is pure: no I/O, no shared state.
package analysis

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/money"
)

const (
	// volatileThreshold is the relative volatility above which a series is volatile.
	volatileThreshold = 0.15
	// slopeThreshold is the per-observation slope, as a fraction of the mean, that counts as a trend.
	slopeThreshold = 0.01
	// minTrendPoints is the shortest series that gets a regression fit.
	minTrendPoints = 3
)

// Analyze computes summary statistics over a chronologically ordered history.
// An empty history yields a zero-valued analysis with a stable trend.
func Analyze(history []models.PricePoint) models.PriceAnalysis {
	if len(history) == 0 {
		return models.PriceAnalysis{
			Trend:   models.TrendStable,
			History: []models.PricePoint{},
		}
	}

	prices := Prices(history)
	mean, volatility := meanStdDev(prices)

	daysAnalyzed := 0
	if len(history) > 1 {
		daysAnalyzed = int(history[len(history)-1].Timestamp.Sub(history[0].Timestamp).Hours() / 24)
	}

	retained := make([]models.PricePoint, len(history))
	copy(retained, history)

	return models.PriceAnalysis{
		CurrentPrice: prices[len(prices)-1],
		MinPrice:     slices.Min(prices),
		MaxPrice:     slices.Max(prices),
		AvgPrice:     mean,
		MedianPrice:  Median(prices),
		Volatility:   volatility,
		Trend:        ClassifyTrend(prices),
		DaysAnalyzed: daysAnalyzed,
		History:      retained,
	}
}

// Prices extracts the price column of a history.
func Prices(history []models.PricePoint) []float64 {
	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.Price
	}
	return prices
}

// ClassifyTrend labels a price series as increasing, decreasing, stable, or volatile.
func ClassifyTrend(prices []float64) models.PriceTrend {
	if len(prices) < minTrendPoints {
		return models.TrendStable
	}

	slope := Slope(prices)
	mean := stat.Mean(prices, nil)

	if RelativeVolatility(prices) > volatileThreshold {
		return models.TrendVolatile
	}
	switch {
	case slope > slopeThreshold*mean:
		return models.TrendIncreasing
	case slope < -slopeThreshold*mean:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// Slope returns the OLS slope of prices against their index.
func Slope(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	xs := make([]float64, len(prices))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, prices, nil, false)
	if math.IsNaN(beta) {
		return 0
	}
	return beta
}

// RelativeVolatility is the sample standard deviation divided by the mean.
// It is 0 when the mean is not positive or there are fewer than two prices.
func RelativeVolatility(prices []float64) float64 {
	mean, std := meanStdDev(prices)
	if mean <= 0 {
		return 0
	}
	return std / mean
}

// Median returns the middle price, averaging the two middle values for an even count.
func Median(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// meanStdDev guards the single-element case, where gonum's sample stdev is NaN.
func meanStdDev(prices []float64) (mean, std float64) {
	switch len(prices) {
	case 0:
		return 0, 0
	case 1:
		return prices[0], 0
	}
	return stat.MeanStdDev(prices, nil)
}

// ComparePlatforms projects offers into a per-platform summary. It does no
// ranking; when a platform has several offers the last one wins.
func ComparePlatforms(offers []models.Offer) map[string]models.PlatformSummary {
	comparison := make(map[string]models.PlatformSummary, len(offers))
	for _, o := range offers {
		trust := 0.0
		if o.Seller != nil {
			trust = o.Seller.TrustScore()
		}
		comparison[o.Platform] = models.PlatformSummary{
			Price:           o.Price,
			DiscountPercent: o.DiscountPercent,
			Rating:          o.Rating,
			SellerTrust:     trust,
			InStock:         o.InStock,
		}
	}
	return comparison
}

// CalculateSavings compares the best price against the most expensive competitor.
// Amount and percentage are rounded to two decimals; both are 0 without competitors.
func CalculateSavings(bestPrice float64, competing []float64) models.Savings {
	if len(competing) == 0 {
		return models.Savings{}
	}

	highest := slices.Max(competing)
	amount := math.Max(0, highest-bestPrice)
	percentage := 0.0
	if highest > 0 {
		percentage = amount / highest * 100
	}

	return models.Savings{
		Amount:     money.Round2(amount),
		Percentage: money.Round2(percentage),
		VsHighest:  money.Round2(highest),
	}
}
