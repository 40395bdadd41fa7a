package models

import (
	"testing"
	"time"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestPricePointValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		point   PricePoint
		wantErr bool
	}{
		{
			name:    "valid point",
			point:   PricePoint{Price: 999, Timestamp: now, Platform: "amazon"},
			wantErr: false,
		},
		{
			name:    "valid sale point with original price",
			point:   PricePoint{Price: 799, OriginalPrice: floatPtr(999), DiscountPercent: 20, IsSale: true, SaleName: strPtr("Diwali Sale"), Timestamp: now},
			wantErr: false,
		},
		{
			name:    "negative price",
			point:   PricePoint{Price: -1, Timestamp: now},
			wantErr: true,
		},
		{
			name:    "original price below price",
			point:   PricePoint{Price: 100, OriginalPrice: floatPtr(90), Timestamp: now},
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			point:   PricePoint{Price: 100},
			wantErr: true,
		},
		{
			name:    "empty sale name",
			point:   PricePoint{Price: 100, SaleName: strPtr(""), Timestamp: now},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PricePoint.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOfferValidate(t *testing.T) {
	tests := []struct {
		name    string
		offer   Offer
		wantErr bool
	}{
		{
			name:    "valid offer",
			offer:   Offer{ProductID: "p-1", Platform: "amazon", Price: 100, InStock: true, Rating: 4.2},
			wantErr: false,
		},
		{
			name:    "empty product ID",
			offer:   Offer{Platform: "amazon", Price: 100},
			wantErr: true,
		},
		{
			name:    "empty platform",
			offer:   Offer{ProductID: "p-1", Price: 100},
			wantErr: true,
		},
		{
			name:    "rating above 5",
			offer:   Offer{ProductID: "p-1", Platform: "amazon", Price: 100, Rating: 5.5},
			wantErr: true,
		},
		{
			name:    "invalid seller",
			offer:   Offer{ProductID: "p-1", Platform: "amazon", Price: 100, Seller: &SellerInfo{Rating: 4, PositivePercent: 120}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.offer.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Offer.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaleEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   SaleEvent
		wantErr bool
	}{
		{"valid", SaleEvent{Name: "Holi Sale", Month: time.March, Days: []int{15, 16}}, false},
		{"leap day accepted", SaleEvent{Name: "Leap Sale", Month: time.February, Days: []int{29}}, false},
		{"empty name", SaleEvent{Month: time.March, Days: []int{1}}, true},
		{"month out of range", SaleEvent{Name: "X", Month: 13, Days: []int{1}}, true},
		{"no days", SaleEvent{Name: "X", Month: time.May}, true},
		{"day does not exist", SaleEvent{Name: "X", Month: time.February, Days: []int{30}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SaleEvent.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPriceAnalysisPosition(t *testing.T) {
	tests := []struct {
		name     string
		analysis PriceAnalysis
		expected PricePosition
	}{
		{"at minimum", PriceAnalysis{CurrentPrice: 100, MinPrice: 100, AvgPrice: 120}, PositionExcellent},
		{"within 5% of minimum", PriceAnalysis{CurrentPrice: 104, MinPrice: 100, AvgPrice: 120}, PositionExcellent},
		{"well below average", PriceAnalysis{CurrentPrice: 110, MinPrice: 100, AvgPrice: 120}, PositionGood},
		{"near average", PriceAnalysis{CurrentPrice: 122, MinPrice: 100, AvgPrice: 120}, PositionAverage},
		{"above average", PriceAnalysis{CurrentPrice: 130, MinPrice: 100, AvgPrice: 120}, PositionHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.analysis.Position(); got != tt.expected {
				t.Errorf("Position() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestRecommendationPriceComparison(t *testing.T) {
	r := Recommendation{AllOffers: []Offer{
		{Platform: "amazon", Price: 100},
		{Platform: "flipkart", Price: 95},
		{Platform: "amazon", Price: 110},
	}}

	got := r.PriceComparison()
	if len(got) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(got))
	}
	if got["amazon"] != 110 {
		t.Errorf("expected last amazon offer to win, got %.2f", got["amazon"])
	}
	if got["flipkart"] != 95 {
		t.Errorf("expected flipkart 95, got %.2f", got["flipkart"])
	}
}

func TestPricePredictionShouldBuyNow(t *testing.T) {
	if !(&PricePrediction{ExpectedPriceDrop: 2, Confidence: 90}).ShouldBuyNow() {
		t.Error("small expected drop should mean buy now")
	}
	if !(&PricePrediction{ExpectedPriceDrop: 50, Confidence: 40}).ShouldBuyNow() {
		t.Error("low confidence should mean buy now")
	}
	if (&PricePrediction{ExpectedPriceDrop: 50, Confidence: 80}).ShouldBuyNow() {
		t.Error("confident large drop should mean wait")
	}
}

func TestSellerInfoTrustScore(t *testing.T) {
	tests := []struct {
		name     string
		seller   SellerInfo
		expected float64
	}{
		{"perfect seller", SellerInfo{Rating: 5, PositivePercent: 100, OnTimeShipPercent: 100, Verified: true}, 100},
		{"unverified", SellerInfo{Rating: 5, PositivePercent: 100, OnTimeShipPercent: 100}, 90},
		{"mixed", SellerInfo{Rating: 4.5, PositivePercent: 92, OnTimeShipPercent: 95, Verified: true}, 36 + 27.6 + 19 + 10},
		{"empty", SellerInfo{}, 0},
		{"out of range inputs are clamped", SellerInfo{Rating: 9, PositivePercent: 150, OnTimeShipPercent: -5}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seller.TrustScore(); got != tt.expected {
				t.Errorf("TrustScore() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
