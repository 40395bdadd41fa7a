// Package scoring ranks competing offers and picks the best one.
//
// Each in-stock offer gets a composite score on a 0-100 scale:
//
//	composite = 0.5 × price_score + 0.3 × trust_score + 0.2 × rating_score
//
// price_score is 100 − price/max_price × 100, so the most expensive in-stock
// offer scores 0. trust_score is the seller trust score, or a neutral 50 when
// the seller is unknown. rating_score is rating/5 × 100.
//
// When nothing is in stock the cheapest offer overall is returned instead, so
// a non-empty input always yields an offer.
package scoring

import (
	"errors"

	"github.com/rewired-gh/pricewise/internal/analysis"
	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/money"
)

// ErrNoOffers is returned when asked to choose from an empty list.
var ErrNoOffers = errors.New("no offers to choose from")

const (
	priceWeight  = 0.5
	trustWeight  = 0.3
	ratingWeight = 0.2

	// neutralTrust is used for offers without seller information.
	neutralTrust = 50.0
)

// ScoredOffer is an in-stock offer with its score breakdown
type ScoredOffer struct {
	Offer       models.Offer
	Index       int // position in the input slice
	PriceScore  float64
	TrustScore  float64
	RatingScore float64
	Composite   float64
}

// TrustScore returns the seller trust score, or the neutral 50 for an unknown seller.
func TrustScore(seller *models.SellerInfo) float64 {
	if seller == nil {
		return neutralTrust
	}
	return seller.TrustScore()
}

// Rank scores every in-stock offer, preserving input order.
func Rank(offers []models.Offer) []ScoredOffer {
	maxPrice := 0.0
	for _, o := range offers {
		if o.InStock && o.Price > maxPrice {
			maxPrice = o.Price
		}
	}

	var scored []ScoredOffer
	for i, o := range offers {
		if !o.InStock {
			continue
		}
		priceScore := 0.0
		if maxPrice > 0 {
			priceScore = 100 - o.Price/maxPrice*100
		}
		trust := TrustScore(o.Seller)
		rating := money.Clamp(o.Rating, 0, 5) / 5.0 * 100

		scored = append(scored, ScoredOffer{
			Offer:       o,
			Index:       i,
			PriceScore:  priceScore,
			TrustScore:  trust,
			RatingScore: rating,
			Composite:   priceWeight*priceScore + trustWeight*trust + ratingWeight*rating,
		})
	}
	return scored
}

// SelectBest picks the in-stock offer with the highest composite score; the
// first one wins a tie. With no offer in stock it falls back to the cheapest
// offer overall. Only an empty list is an error.
func SelectBest(offers []models.Offer) (models.Offer, error) {
	best, _, err := selectBest(offers)
	return best, err
}

func selectBest(offers []models.Offer) (models.Offer, int, error) {
	if len(offers) == 0 {
		return models.Offer{}, -1, ErrNoOffers
	}

	scored := Rank(offers)
	if len(scored) == 0 {
		cheapest := 0
		for i, o := range offers {
			if o.Price < offers[cheapest].Price {
				cheapest = i
			}
		}
		return offers[cheapest], cheapest, nil
	}

	top := scored[0]
	for _, s := range scored[1:] {
		if s.Composite > top.Composite {
			top = s
		}
	}
	return top.Offer, top.Index, nil
}

// Savings compares the chosen offer against every other in-stock offer.
// bestIndex identifies the chosen offer in offers; pass -1 when it is not part of the list.
func Savings(best models.Offer, bestIndex int, offers []models.Offer) models.Savings {
	var competing []float64
	for i, o := range offers {
		if i == bestIndex || !o.InStock {
			continue
		}
		competing = append(competing, o.Price)
	}
	return analysis.CalculateSavings(best.Price, competing)
}

// SelectWithSavings runs SelectBest and Savings in one pass.
func SelectWithSavings(offers []models.Offer) (models.Offer, models.Savings, error) {
	best, idx, err := selectBest(offers)
	if err != nil {
		return models.Offer{}, models.Savings{}, err
	}
	return best, Savings(best, idx, offers), nil
}
