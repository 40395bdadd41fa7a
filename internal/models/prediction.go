package models

import (
	"errors"
	"fmt"
	"time"
)

// SaleEvent is a named promotion recurring every year in one month
type SaleEvent struct {
	Name  string     `json:"name" mapstructure:"name"`
	Month time.Month `json:"month" mapstructure:"month"`
	Days  []int      `json:"days" mapstructure:"days"`
}

// Validate checks the event name, month, and that every day exists in that month
func (e *SaleEvent) Validate() error {
	if e.Name == "" {
		return errors.New("sale event name must not be empty")
	}
	if e.Month < time.January || e.Month > time.December {
		return fmt.Errorf("sale event %q: month must be between 1 and 12", e.Name)
	}
	if len(e.Days) == 0 {
		return fmt.Errorf("sale event %q: at least one day is required", e.Name)
	}
	for _, d := range e.Days {
		// 2024 is a leap year so Feb 29 is accepted here; NextSale skips it in other years.
		if d < 1 || d > daysIn(e.Month, 2024) {
			return fmt.Errorf("sale event %q: day %d does not exist in %s", e.Name, d, e.Month)
		}
	}
	return nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// UpcomingSale is the nearest sale event inside the lookahead horizon
type UpcomingSale struct {
	Name      string `json:"name"`
	DaysUntil int    `json:"days_until"`
}

// ForecastMethod records which forecasting path produced a prediction
type ForecastMethod string

const (
	MethodInsufficientData    ForecastMethod = "insufficient_data"
	MethodMovingAverage       ForecastMethod = "moving_average"
	MethodHoltWinters         ForecastMethod = "holt_winters"
	MethodHoltWintersFallback ForecastMethod = "holt_winters_fallback"
)

// PricePrediction is a short-horizon forecast plus buy/wait guidance
type PricePrediction struct {
	PredictedPrice    float64        `json:"predicted_price"`
	Confidence        float64        `json:"confidence"` // 30-95
	OptimalBuyDate    *time.Time     `json:"optimal_buy_date,omitempty"`
	ExpectedPriceDrop float64        `json:"expected_price_drop"`
	UpcomingSale      *UpcomingSale  `json:"upcoming_sale,omitempty"`
	Recommendation    string         `json:"recommendation"`
	Method            ForecastMethod `json:"method"`
}

// ShouldBuyNow reports whether waiting is unlikely to pay off: the expected
// drop is small or the forecast is not trustworthy enough to act on.
func (p *PricePrediction) ShouldBuyNow() bool {
	return p.ExpectedPriceDrop < 5.0 || p.Confidence < 60
}
