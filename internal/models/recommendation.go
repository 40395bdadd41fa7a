package models

import (
	"time"
)

// Insights holds the free-text commentary attached to a recommendation
type Insights struct {
	Summary          string   `json:"summary"`
	DetailedAnalysis string   `json:"detailed_analysis"`
	TimingAdvice     string   `json:"timing_advice"`
	Suggestions      []string `json:"suggestions"`
}

// Recommendation combines the best offer with its price analysis, forecast,
// savings, and commentary for one search query.
type Recommendation struct {
	ID         string           `json:"id"`
	Query      string           `json:"query"`
	BestOffer  *Offer           `json:"best_offer,omitempty"` // nil when no offers were found
	AllOffers  []Offer          `json:"all_offers"`
	Analysis   *PriceAnalysis   `json:"analysis,omitempty"`
	Prediction *PricePrediction `json:"prediction,omitempty"`
	Savings    Savings          `json:"savings"`
	Insights   Insights         `json:"insights"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PriceComparison maps each platform to the price of its offer.
// When a platform has several offers the last one wins.
func (r *Recommendation) PriceComparison() map[string]float64 {
	comparison := make(map[string]float64, len(r.AllOffers))
	for _, o := range r.AllOffers {
		comparison[o.Platform] = o.Price
	}
	return comparison
}
