// Package forecast predicts a product's near-term price and turns the forecast
// into buy/wait guidance tied to upcoming sale events.
//
// The forecasting path depends on how much history is available:
//
//	fewer than 7 points   no model; predict the last price with confidence 30
//	7 to 9 points         mean of the last 7 prices
//	10 or more points     additive Holt-Winters with a 7-day season; any fit
//	                      failure falls back to the mean of the last 7 prices
//
// Confidence grows with history length (up to 50 points at 30 observations)
// and shrinks with relative volatility (up to a 30 point penalty), and is
// clamped to [30, 95].
package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/pricewise/internal/analysis"
	"github.com/rewired-gh/pricewise/internal/calendar"
	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/money"
)

const (
	// DefaultDaysAhead is the forecast horizon used when none is given.
	DefaultDaysAhead = 7

	minHistory          = 7
	minModelHistory     = 10
	seasonalPeriod      = 7
	movingAverageWindow = 7

	minConfidence         = 30.0
	maxConfidence         = 95.0
	fullConfidenceHistory = 30
	maxVolatilityPenalty  = 30.0
	significantChangePct  = 5.0
	saleWaitDays          = 14
	saleBuyDateDays       = 30
)

const (
	recInsufficientData = "BUY NOW — insufficient data for prediction"
	recPriceDrop        = "WAIT — price expected to drop"
	recPriceRise        = "BUY NOW — price expected to increase"
	recGoodTime         = "BUY NOW — good time to purchase"
)

// Forecaster produces price predictions. It holds no per-call state and is
// safe for concurrent use as long as its Model is.
type Forecaster struct {
	calendar *calendar.Calendar
	model    Model
	now      func() time.Time
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithModel replaces the seasonal model used for long histories.
func WithModel(m Model) Option {
	return func(f *Forecaster) { f.model = m }
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

// New creates a Forecaster using cal for sale lookups. A nil cal uses the default table.
func New(cal *calendar.Calendar, opts ...Option) *Forecaster {
	if cal == nil {
		cal = calendar.Default()
	}
	f := &Forecaster{
		calendar: cal,
		model:    HoltWinters{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Predict forecasts the price daysAhead days after the last observation.
// daysAhead < 1 means DefaultDaysAhead. history must be in chronological order.
func (f *Forecaster) Predict(history []models.PricePoint, daysAhead int) models.PricePrediction {
	if daysAhead < 1 {
		daysAhead = DefaultDaysAhead
	}

	today := dateOf(f.now())
	sale := f.calendar.NextSale(today)
	prices := analysis.Prices(history)

	if len(prices) < minHistory {
		return insufficientDataPrediction(prices, sale)
	}

	current := prices[len(prices)-1]
	predicted, method := f.forecast(prices, daysAhead)

	drop := math.Max(0, current-predicted)
	dropPct := 0.0
	if current > 0 {
		dropPct = drop / current * 100
	}

	var optimal *time.Time
	switch {
	case sale != nil && sale.DaysUntil >= 1 && sale.DaysUntil <= saleBuyDateDays:
		d := today.AddDate(0, 0, sale.DaysUntil)
		optimal = &d
	case dropPct > significantChangePct:
		d := today.AddDate(0, 0, daysAhead)
		optimal = &d
	}

	return models.PricePrediction{
		PredictedPrice:    money.Round2(predicted),
		Confidence:        money.Round2(Confidence(prices)),
		OptimalBuyDate:    optimal,
		ExpectedPriceDrop: money.Round2(drop),
		UpcomingSale:      sale,
		Recommendation:    recommend(current, predicted, sale),
		Method:            method,
	}
}

func (f *Forecaster) forecast(prices []float64, daysAhead int) (float64, models.ForecastMethod) {
	if len(prices) < minModelHistory {
		return movingAverage(prices), models.MethodMovingAverage
	}

	steps, err := f.model.Forecast(prices, seasonalPeriod, daysAhead)
	if err == nil && len(steps) > 0 {
		last := steps[len(steps)-1]
		if !math.IsNaN(last) && !math.IsInf(last, 0) {
			return last, models.MethodHoltWinters
		}
		err = ErrNonFinite
	}
	if err == nil {
		err = fmt.Errorf("model returned no steps")
	}
	logger.Debug("Seasonal fit failed over %d points, using %d-point moving average: %v", len(prices), movingAverageWindow, err)
	return movingAverage(prices), models.MethodHoltWintersFallback
}

// Confidence scores how much a forecast over prices can be trusted, in [30, 95].
func Confidence(prices []float64) float64 {
	dataConfidence := math.Min(float64(len(prices))/fullConfidenceHistory*50, 50)
	penalty := math.Min(analysis.RelativeVolatility(prices)*50, maxVolatilityPenalty)
	return money.Clamp(dataConfidence+(50-penalty), minConfidence, maxConfidence)
}

func insufficientDataPrediction(prices []float64, sale *models.UpcomingSale) models.PricePrediction {
	current := 0.0
	if len(prices) > 0 {
		current = prices[len(prices)-1]
	}

	rec := recInsufficientData
	if saleIsSoon(sale) {
		rec = waitForSale(sale)
	}

	return models.PricePrediction{
		PredictedPrice: money.Round2(current),
		Confidence:     minConfidence,
		UpcomingSale:   sale,
		Recommendation: rec,
		Method:         models.MethodInsufficientData,
	}
}

// recommend applies the first matching rule: sale within 14 days, predicted
// drop over 5%, predicted rise over 5%, otherwise buy now.
func recommend(current, predicted float64, sale *models.UpcomingSale) string {
	changePct := 0.0
	if current > 0 {
		changePct = (predicted - current) / current * 100
	}

	switch {
	case saleIsSoon(sale):
		return waitForSale(sale)
	case changePct < -significantChangePct:
		return recPriceDrop
	case changePct > significantChangePct:
		return recPriceRise
	default:
		return recGoodTime
	}
}

// saleIsSoon is true for a sale 1 to 14 days away. A sale starting today
// is not worth waiting for.
func saleIsSoon(sale *models.UpcomingSale) bool {
	return sale != nil && sale.DaysUntil >= 1 && sale.DaysUntil <= saleWaitDays
}

func waitForSale(sale *models.UpcomingSale) string {
	return fmt.Sprintf("WAIT — %s in %d days", sale.Name, sale.DaysUntil)
}

func movingAverage(prices []float64) float64 {
	window := prices
	if len(prices) > movingAverageWindow {
		window = prices[len(prices)-movingAverageWindow:]
	}
	return stat.Mean(window, nil)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
