package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientData means the series is too short for the seasonal period.
	ErrInsufficientData = errors.New("series too short for seasonal fit")
	// ErrNoVariance means the series is constant and the fit is degenerate.
	ErrNoVariance = errors.New("series has no variance")
	// ErrNotConverged means the smoothing parameter search failed.
	ErrNotConverged = errors.New("smoothing parameter search did not converge")
	// ErrNonFinite means the fitted model produced NaN or Inf.
	ErrNonFinite = errors.New("fit produced a non-finite forecast")
)

// Model produces a multi-step forecast from a series.
type Model interface {
	Forecast(series []float64, period, steps int) ([]float64, error)
}

// HoltWinters is additive-trend, additive-seasonal triple exponential smoothing.
// The smoothing parameters α, β, γ are chosen by Nelder-Mead to minimise the
// in-sample sum of squared one-step-ahead errors.
type HoltWinters struct {
	// MaxEvaluations caps objective evaluations during the parameter search.
	MaxEvaluations int
}

// hwParams holds the smoothing parameters, each in (0, 1).
type hwParams struct {
	alpha, beta, gamma float64
}

// hwState is the level, trend, and one seasonal slot per phase.
type hwState struct {
	level, trend float64
	season       []float64
}

// Forecast fits the model to series and returns the next steps values.
func (hw HoltWinters) Forecast(series []float64, period, steps int) ([]float64, error) {
	if period < 2 || len(series) < period+3 {
		return nil, ErrInsufficientData
	}
	if steps < 1 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
	}
	if stat.Variance(series, nil) < 1e-12 {
		return nil, ErrNoVariance
	}

	params, err := hw.fit(series, period)
	if err != nil {
		return nil, err
	}

	state, _ := smooth(series, period, params)
	n := len(series)
	out := make([]float64, steps)
	for h := 1; h <= steps; h++ {
		out[h-1] = state.level + float64(h)*state.trend + state.season[(n+h-1)%period]
		if math.IsNaN(out[h-1]) || math.IsInf(out[h-1], 0) {
			return nil, ErrNonFinite
		}
	}
	return out, nil
}

func (hw HoltWinters) fit(series []float64, period int) (hwParams, error) {
	maxEvals := hw.MaxEvaluations
	if maxEvals <= 0 {
		maxEvals = 5000
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			_, sse := smooth(series, period, toParams(x))
			if math.IsNaN(sse) {
				return math.Inf(1)
			}
			return sse
		},
	}
	x0 := []float64{logit(0.3), logit(0.1), logit(0.1)}

	// Hitting the evaluation limit still leaves a usable best point.
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{FuncEvaluations: maxEvals}, &optimize.NelderMead{})
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		if err == nil {
			err = errors.New("no finite objective value")
		}
		return hwParams{}, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	return toParams(result.X), nil
}

// initialState seeds the level with the first season's mean, the trend with the
// average per-step change between the first two seasons (using whatever part of
// the second season exists), and each seasonal slot with its first-season deviation.
func initialState(series []float64, period int) hwState {
	level := stat.Mean(series[:period], nil)

	var trend float64
	pairs := 0
	for i := 0; i < period && period+i < len(series); i++ {
		trend += (series[period+i] - series[i]) / float64(period)
		pairs++
	}
	if pairs > 0 {
		trend /= float64(pairs)
	}

	season := make([]float64, period)
	for i := range season {
		season[i] = series[i] - level
	}
	return hwState{level: level, trend: trend, season: season}
}

// smooth runs the recursions over series and returns the final state together
// with the sum of squared one-step-ahead errors.
func smooth(series []float64, period int, p hwParams) (hwState, float64) {
	state := initialState(series, period)
	var sse float64

	for t, y := range series {
		slot := t % period
		prevLevel, prevTrend, prevSeason := state.level, state.trend, state.season[slot]

		residual := y - (prevLevel + prevTrend + prevSeason)
		sse += residual * residual

		state.level = p.alpha*(y-prevSeason) + (1-p.alpha)*(prevLevel+prevTrend)
		state.trend = p.beta*(state.level-prevLevel) + (1-p.beta)*prevTrend
		state.season[slot] = p.gamma*(y-state.level) + (1-p.gamma)*prevSeason
	}
	return state, sse
}

func toParams(x []float64) hwParams {
	return hwParams{alpha: sigmoid(x[0]), beta: sigmoid(x[1]), gamma: sigmoid(x[2])}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
