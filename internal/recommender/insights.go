package recommender

import (
	"context"
	"fmt"

	"github.com/rewired-gh/pricewise/internal/models"
)

// FallbackInsights produces deterministic commentary from the offers alone.
type FallbackInsights struct{}

// Generate never fails.
func (FallbackInsights) Generate(_ context.Context, offers []models.Offer, _ *models.PriceAnalysis, p *models.PricePrediction) (models.Insights, error) {
	if len(offers) == 0 {
		return models.Insights{
			Summary:          "No products found for comparison.",
			DetailedAnalysis: "Unable to perform analysis.",
			TimingAdvice:     "Please try a different search query.",
			Suggestions:      []string{},
		}, nil
	}

	cheapest := offers[0]
	for _, o := range offers[1:] {
		if o.Price < cheapest.Price {
			cheapest = o
		}
	}

	timing := "Consider purchasing now if the price meets your budget."
	if p != nil && p.Recommendation != "" {
		timing = p.Recommendation
	}

	summary := fmt.Sprintf("Best price found on %s at ₹%.2f", cheapest.Platform, cheapest.Price)
	detail := fmt.Sprintf("Comparing %d products across platforms. %s offers the lowest price.", len(offers), cheapest.Platform)

	return models.Insights{
		Summary:          summary,
		DetailedAnalysis: detail,
		TimingAdvice:     timing,
		Suggestions: []string{
			"Check seller ratings before purchasing",
			"Compare shipping costs",
			"Look for additional coupons",
		},
	}, nil
}
