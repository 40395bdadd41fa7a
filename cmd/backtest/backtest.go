package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/pricewise/internal/forecast"
	"github.com/rewired-gh/pricewise/internal/models"
	"github.com/rewired-gh/pricewise/internal/storage"
)

// methodError accumulates absolute percentage errors for one forecast method
type methodError struct {
	Method  models.ForecastMethod
	Samples int
	SumAPE  float64
}

// MAPE is the mean absolute percentage error, or NaN with no samples
func (m methodError) MAPE() float64 {
	if m.Samples == 0 {
		return math.NaN()
	}
	return m.SumAPE / float64(m.Samples)
}

// replay predicts horizon points ahead from every prefix of history and
// scores each prediction against the observed price. Targets priced at zero
// are skipped. Results are ordered by method name.
func replay(f *forecast.Forecaster, history []models.PricePoint, horizon int) []methodError {
	if horizon < 1 {
		horizon = forecast.DefaultDaysAhead
	}

	byMethod := make(map[models.ForecastMethod]*methodError)
	for end := 1; end+horizon-1 < len(history); end++ {
		actual := history[end+horizon-1].Price
		if actual <= 0 {
			continue
		}

		p := f.Predict(history[:end], horizon)
		e, ok := byMethod[p.Method]
		if !ok {
			e = &methodError{Method: p.Method}
			byMethod[p.Method] = e
		}
		e.Samples++
		e.SumAPE += math.Abs(p.PredictedPrice-actual) / actual * 100
	}

	out := make([]methodError, 0, len(byMethod))
	for _, e := range byMethod {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func printResults(w io.Writer, product *storage.Product, points, horizon int, results []methodError) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "BACKTEST %s on %s (%d points, horizon %d)\n", product.ProductID, product.Platform, points, horizon)
	if product.Name != "" {
		fmt.Fprintln(w, product.Name)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if len(results) == 0 {
		fmt.Fprintln(w, "Not enough history to score any prediction.")
		return
	}

	fmt.Fprintf(w, "%-24s %8s %10s\n", "Method", "Samples", "MAPE")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range results {
		fmt.Fprintf(w, "%-24s %8d %9.2f%%\n", r.Method, r.Samples, r.MAPE())
	}
}
