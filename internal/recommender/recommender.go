// Package recommender ties the engine together for one search query: it picks
// the best offer, analyses and forecasts its price history, computes savings,
// attaches commentary, and optionally records every offer seen.
package recommender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/pricewise/internal/analysis"
	"github.com/rewired-gh/pricewise/internal/forecast"
	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/scoring"
)

const (
	defaultHistoryWindow = 30 * 24 * time.Hour

	noProductsSummary = "No products found for your search query."
	noProductsDetail  = "Please try a different search term."
)

// OfferSource returns the current offers matching a search query.
type OfferSource interface {
	OffersFor(ctx context.Context, query string) ([]models.Offer, error)
}

// HistoryStore returns a product's price history on one platform, oldest first.
type HistoryStore interface {
	HistoryFor(ctx context.Context, productID, platform string, window time.Duration) ([]models.PricePoint, error)
}

// InsightGenerator writes commentary for a set of offers. a and p may be nil.
type InsightGenerator interface {
	Generate(ctx context.Context, offers []models.Offer, a *models.PriceAnalysis, p *models.PricePrediction) (models.Insights, error)
}

// Recorder persists an offer observed at a point in time.
type Recorder interface {
	SaveOffer(ctx context.Context, offer models.Offer, at time.Time) error
}

// SellerStore returns the last known seller snapshot for a product.
type SellerStore interface {
	LatestSeller(ctx context.Context, productID, platform string) (*models.SellerInfo, error)
}

// Options tunes a Recommender. Zero values select the defaults.
type Options struct {
	HistoryWindow time.Duration
	ForecastDays  int
	Recorder      Recorder
	// Sellers fills in seller info for offers that arrive without it.
	Sellers SellerStore
	Now     func() time.Time
}

// Recommender builds recommendations. history, insights and Options.Recorder may be nil.
type Recommender struct {
	offers     OfferSource
	history    HistoryStore
	insights   InsightGenerator
	forecaster *forecast.Forecaster
	opts       Options
}

// New creates a Recommender. A nil forecaster uses the default calendar and model.
func New(offers OfferSource, history HistoryStore, insights InsightGenerator, forecaster *forecast.Forecaster, opts Options) *Recommender {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.ForecastDays < 1 {
		opts.ForecastDays = forecast.DefaultDaysAhead
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if insights == nil {
		insights = FallbackInsights{}
	}
	if forecaster == nil {
		forecaster = forecast.New(nil)
	}
	return &Recommender{
		offers:     offers,
		history:    history,
		insights:   insights,
		forecaster: forecaster,
		opts:       opts,
	}
}

// Recommend searches for query and returns a recommendation. It fails only
// when the offer source fails; no offers yields an empty recommendation.
func (r *Recommender) Recommend(ctx context.Context, query string) (*models.Recommendation, error) {
	offers, err := r.offers.OffersFor(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch offers for %q: %w", query, err)
	}

	now := r.opts.Now()
	rec := &models.Recommendation{
		ID:        uuid.NewString(),
		Query:     query,
		AllOffers: r.withKnownSellers(ctx, offers),
		CreatedAt: now,
	}

	if len(offers) == 0 {
		rec.AllOffers = []models.Offer{}
		rec.Insights = models.Insights{Summary: noProductsSummary, DetailedAnalysis: noProductsDetail}
		return rec, nil
	}

	best, savings, err := scoring.SelectWithSavings(rec.AllOffers)
	if err != nil {
		return nil, fmt.Errorf("failed to select best offer: %w", err)
	}
	rec.BestOffer = &best
	rec.Savings = savings

	history := r.historyFor(ctx, best)
	if len(history) > 0 {
		a := analysis.Analyze(history)
		p := r.forecaster.Predict(history, r.opts.ForecastDays)
		rec.Analysis = &a
		rec.Prediction = &p
	}

	insights, err := r.insights.Generate(ctx, rec.AllOffers, rec.Analysis, rec.Prediction)
	if err != nil {
		logger.Warn("Insight generation failed for %q, using fallback: %v", query, err)
		insights, _ = FallbackInsights{}.Generate(ctx, rec.AllOffers, rec.Analysis, rec.Prediction)
	}
	rec.Insights = insights

	// Backfilled sellers are already stored; record the offers as received.
	r.record(ctx, offers, now)

	return rec, nil
}

// withKnownSellers returns a copy of offers where a missing Seller is taken
// from the store. Lookup failures leave the offer unchanged.
func (r *Recommender) withKnownSellers(ctx context.Context, offers []models.Offer) []models.Offer {
	if r.opts.Sellers == nil {
		return offers
	}
	out := make([]models.Offer, len(offers))
	copy(out, offers)
	for i := range out {
		if out[i].Seller != nil {
			continue
		}
		seller, err := r.opts.Sellers.LatestSeller(ctx, out[i].ProductID, out[i].Platform)
		if err != nil {
			logger.Debug("No stored seller for %s on %s: %v", out[i].ProductID, out[i].Platform, err)
			continue
		}
		out[i].Seller = seller
	}
	return out
}

func (r *Recommender) historyFor(ctx context.Context, best models.Offer) []models.PricePoint {
	if r.history == nil {
		return nil
	}
	history, err := r.history.HistoryFor(ctx, best.ProductID, best.Platform, r.opts.HistoryWindow)
	if err != nil {
		logger.Warn("Failed to load price history for %s on %s: %v", best.ProductID, best.Platform, err)
		return nil
	}
	return history
}

func (r *Recommender) record(ctx context.Context, offers []models.Offer, at time.Time) {
	if r.opts.Recorder == nil {
		return
	}
	saved := 0
	for _, o := range offers {
		if err := r.opts.Recorder.SaveOffer(ctx, o, at); err != nil {
			logger.Warn("Failed to record offer %s on %s: %v", o.ProductID, o.Platform, err)
			continue
		}
		saved++
	}
	logger.Debug("Recorded %d/%d offers", saved, len(offers))
}
