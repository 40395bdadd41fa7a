// Package watch re-runs recommendations for a fixed set of queries and raises
// alerts when a product's best price falls far enough or its guidance flips
// to buy now.
//
// Repeated alerts are suppressed for a cooldown period unless the reason
// changes, so a product that keeps falling triggers one alert per cooldown
// while a price drop followed by a buy-now flip triggers both.
package watch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/pricewise/internal/logger"
	"github.com/rewired-gh/pricewise/internal/models"
)

// Reason is why an alert was raised.
type Reason string

const (
	ReasonPriceDrop Reason = "price_drop"
	ReasonBuyNow    Reason = "buy_now"
)

// Alert is a notification-worthy change for one product.
type Alert struct {
	Query          string
	Reason         Reason
	Recommendation *models.Recommendation
	ReferencePrice float64 // price the drop is measured from
	DropPercent    float64
}

// Key identifies the alerted product.
func (a Alert) Key() string {
	return productKey(*a.Recommendation.BestOffer)
}

// Recommender produces a recommendation for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string) (*models.Recommendation, error)
}

// Notifier delivers alerts.
type Notifier interface {
	SendAlert(a Alert) error
}

// observation is the last state seen for a product.
type observation struct {
	Price  float64
	BuyNow bool
}

// notifiedRecord tracks a previously sent alert for cooldown deduplication.
type notifiedRecord struct {
	Reason Reason
	Price  float64
	SentAt time.Time
}

// Watcher handles periodic re-evaluation of watched queries
type Watcher struct {
	recommender    Recommender
	notifier       Notifier
	queries        []string
	minDropPercent float64
	cooldown       time.Duration
	now            func() time.Time

	mu       sync.Mutex
	seen     map[string]observation
	notified map[string]notifiedRecord
}

// New creates a Watcher. notifier may be nil, in which case alerts are only logged.
func New(r Recommender, notifier Notifier, queries []string, minDropPercent float64, cooldown time.Duration) *Watcher {
	return &Watcher{
		recommender:    r,
		notifier:       notifier,
		queries:        queries,
		minDropPercent: minDropPercent,
		cooldown:       cooldown,
		now:            time.Now,
		seen:           make(map[string]observation),
		notified:       make(map[string]notifiedRecord),
	}
}

// QueryError represents a per-query failure during a cycle
type QueryError struct {
	Query string
	Err   error
}

func (e QueryError) Error() string {
	return fmt.Sprintf("watch error for query %q: %v", e.Query, e.Err)
}

func (e QueryError) Unwrap() error { return e.Err }

// RunCycle evaluates every query once and sends the resulting alerts. Per-query
// failures are logged and returned; the error is non-nil only when every query failed.
func (w *Watcher) RunCycle(ctx context.Context) ([]Alert, []QueryError, error) {
	var (
		alerts []Alert
		errs   []QueryError
	)

	for _, query := range w.queries {
		if err := ctx.Err(); err != nil {
			return alerts, errs, err
		}
		rec, err := w.recommender.Recommend(ctx, query)
		if err != nil {
			logger.Warn("Watch query %q failed: %v", query, err)
			errs = append(errs, QueryError{Query: query, Err: err})
			continue
		}
		alerts = append(alerts, w.Evaluate(query, rec)...)
	}

	if len(w.queries) > 0 && len(errs) == len(w.queries) {
		return nil, errs, fmt.Errorf("all %d watch queries failed", len(errs))
	}

	alerts = w.FilterRecentlySent(alerts)
	if len(alerts) == 0 {
		logger.Debug("No alerts this cycle")
		return alerts, errs, nil
	}

	sent := alerts[:0:0]
	for _, a := range alerts {
		if w.notifier == nil {
			logger.Info("Alert (%s) for %q: %s", a.Reason, a.Query, a.Recommendation.BestOffer.Name)
			sent = append(sent, a)
			continue
		}
		if err := w.notifier.SendAlert(a); err != nil {
			logger.Error("Failed to send alert for %q: %v", a.Query, err)
			continue
		}
		sent = append(sent, a)
	}
	w.RecordNotified(sent)
	logger.Info("Sent %d/%d alerts", len(sent), len(alerts))

	return sent, errs, nil
}

// Evaluate compares a fresh recommendation with what was last seen for its best
// offer and returns the alerts it warrants. The first sighting of a product only
// sets the baseline.
func (w *Watcher) Evaluate(query string, rec *models.Recommendation) []Alert {
	if rec == nil || rec.BestOffer == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	key := productKey(*rec.BestOffer)
	current := observation{Price: rec.BestOffer.Price, BuyNow: isBuyNow(rec.Prediction)}
	prev, known := w.seen[key]
	if !known {
		w.seen[key] = current
		return nil
	}

	var alerts []Alert

	// Drops are measured from the last alerted price so a slow slide still alerts.
	reference := prev.Price
	if last, ok := w.notified[key]; ok && last.Reason == ReasonPriceDrop {
		reference = last.Price
	}
	if reference > 0 {
		dropPct := (reference - current.Price) / reference * 100
		if dropPct >= w.minDropPercent && current.Price < reference {
			alerts = append(alerts, Alert{
				Query:          query,
				Reason:         ReasonPriceDrop,
				Recommendation: rec,
				ReferencePrice: reference,
				DropPercent:    dropPct,
			})
		}
	}

	if current.BuyNow && !prev.BuyNow {
		alerts = append(alerts, Alert{Query: query, Reason: ReasonBuyNow, Recommendation: rec})
	}

	// Keep the drop baseline until an alert fires so small steps accumulate.
	if current.Price > prev.Price || len(alerts) > 0 {
		w.seen[key] = current
	} else {
		w.seen[key] = observation{Price: prev.Price, BuyNow: current.BuyNow}
	}
	return alerts
}

// FilterRecentlySent removes alerts for products already alerted for the same
// reason within the cooldown. Returns a non-nil slice.
func (w *Watcher) FilterRecentlySent(alerts []Alert) []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	result := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		rec, exists := w.notified[a.Key()]
		if exists && now.Sub(rec.SentAt) < w.cooldown && rec.Reason == a.Reason {
			continue
		}
		result = append(result, a)
	}
	return result
}

// RecordNotified records the given alerts as sent at the current time.
func (w *Watcher) RecordNotified(alerts []Alert) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for _, a := range alerts {
		w.notified[a.Key()] = notifiedRecord{
			Reason: a.Reason,
			Price:  a.Recommendation.BestOffer.Price,
			SentAt: now,
		}
	}
}

func productKey(o models.Offer) string {
	return o.Platform + ":" + o.ProductID
}

func isBuyNow(p *models.PricePrediction) bool {
	return p != nil && strings.HasPrefix(p.Recommendation, "BUY NOW")
}
