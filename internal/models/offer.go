package models

import (
	"errors"

	"github.com/rewired-gh/pricewise/internal/money"
)

// SellerInfo carries the seller reputation inputs used for trust scoring
type SellerInfo struct {
	Name              string  `json:"name"`
	Rating            float64 `json:"rating"` // 0-5
	TotalRatings      int     `json:"total_ratings"`
	PositivePercent   float64 `json:"positive_percent"` // 0-100
	Verified          bool    `json:"verified"`
	OnTimeShipPercent float64 `json:"on_time_ship_percent"` // 0-100
}

// Validate checks that all seller fields are valid
func (s *SellerInfo) Validate() error {
	if s.Rating < 0 || s.Rating > 5 {
		return errors.New("seller rating must be between 0 and 5")
	}
	if s.TotalRatings < 0 {
		return errors.New("seller total ratings must not be negative")
	}
	if s.PositivePercent < 0 || s.PositivePercent > 100 {
		return errors.New("seller positive percent must be between 0 and 100")
	}
	if s.OnTimeShipPercent < 0 || s.OnTimeShipPercent > 100 {
		return errors.New("seller on-time ship percent must be between 0 and 100")
	}
	return nil
}

// TrustScore weights seller reputation into a 0-100 score:
// 40% rating, 30% positive feedback, 20% on-time shipping, 10% verification.
// Inputs outside their documented ranges are clamped first.
func (s *SellerInfo) TrustScore() float64 {
	score := money.Clamp(s.Rating, 0, 5) / 5.0 * 40
	score += money.Clamp(s.PositivePercent, 0, 100) / 100.0 * 30
	score += money.Clamp(s.OnTimeShipPercent, 0, 100) / 100.0 * 20
	if s.Verified {
		score += 10
	}
	return money.Round2(money.Clamp(score, 0, 100))
}

// Offer represents one seller's listing for a product on a platform
type Offer struct {
	ProductID       string      `json:"product_id"`
	Name            string      `json:"name"`
	Platform        string      `json:"platform"`
	Price           float64     `json:"price"`
	OriginalPrice   *float64    `json:"original_price,omitempty"`
	DiscountPercent float64     `json:"discount_percent"`
	InStock         bool        `json:"in_stock"`
	Rating          float64     `json:"rating"` // product rating, 0-5
	ReviewCount     int         `json:"review_count"`
	URL             string      `json:"url,omitempty"`
	Seller          *SellerInfo `json:"seller,omitempty"`
}

// Validate checks that all offer fields are valid
func (o *Offer) Validate() error {
	if o.ProductID == "" {
		return errors.New("offer product ID must not be empty")
	}
	if o.Platform == "" {
		return errors.New("offer platform must not be empty")
	}
	if o.Price < 0 {
		return errors.New("offer price must not be negative")
	}
	if o.OriginalPrice != nil && *o.OriginalPrice < o.Price {
		return errors.New("offer original price must be >= price")
	}
	if o.DiscountPercent < 0 || o.DiscountPercent > 100 {
		return errors.New("offer discount percent must be between 0 and 100")
	}
	if o.Rating < 0 || o.Rating > 5 {
		return errors.New("offer rating must be between 0 and 5")
	}
	if o.ReviewCount < 0 {
		return errors.New("offer review count must not be negative")
	}
	if o.Seller != nil {
		if err := o.Seller.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PlatformSummary is the per-platform projection used for side-by-side comparison
type PlatformSummary struct {
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
	Rating          float64 `json:"rating"`
	SellerTrust     float64 `json:"seller_trust"`
	InStock         bool    `json:"in_stock"`
}

// Savings describes how much the chosen offer saves against the most expensive competitor
type Savings struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	VsHighest  float64 `json:"vs_highest"`
}
