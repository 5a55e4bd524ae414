// Package forecast projects a yearly series forward with a linear model fitted
// over its most recent window.
package forecast

import (
	"math"

	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

const (
	// ModelName identifies the projection method in every result.
	ModelName = "linear_regression_recent_window"

	// MinPoints is the shortest series Forecaster accepts.
	MinPoints = 8

	// minWindow is the smallest regression window regardless of configuration.
	minWindow = 5
)

// Point is a single projected year.
type Point struct {
	Year        int     `json:"year"`
	DemandIndex float64 `json:"demand_index"`
}

// Projection is the raw output of a recent-window fit.
type Projection struct {
	WindowYears int
	Slope       float64
	FitR2       float64
	Points      []Point
}

// Window returns the regression window for a configured recent window and a
// series of n points: at least five, at most n.
func Window(recentWindow, n int) int {
	w := recentWindow
	if w < minWindow {
		w = minWindow
	}
	if w > n {
		w = n
	}
	return w
}

// Project fits a least-squares line over the last window values (years
// starting at startYear) and extrapolates horizon years past the final one.
// Projected values are floored at zero.
func Project(values []float64, startYear, window, horizon int) Projection {
	n := len(values)
	if window > n {
		window = n
	}
	if window < 1 || horizon < 0 {
		return Projection{}
	}

	years := series.Years(startYear, n)
	line, r2 := series.Fit(years[n-window:], values[n-window:])

	lastYear := startYear + n - 1
	points := make([]Point, 0, horizon)
	for step := 1; step <= horizon; step++ {
		year := lastYear + step
		v := math.Max(0, line.At(float64(year)))
		points = append(points, Point{Year: year, DemandIndex: series.Round(v, 6)})
	}

	return Projection{
		WindowYears: window,
		Slope:       line.Slope,
		FitR2:       r2,
		Points:      points,
	}
}

// Options configures a Forecaster.
type Options struct {
	StartYear    int
	HorizonYears int
	RecentWindow int
}

// DefaultOptions returns the defaults used by the analytics pipeline.
func DefaultOptions() Options {
	return Options{
		StartYear:    1985,
		HorizonYears: 5,
		RecentWindow: 12,
	}
}

// Result is the public forecast payload.
type Result struct {
	Model       string  `json:"model"`
	WindowYears int     `json:"window_years"`
	FitR2       float64 `json:"fit_r2"`
	Next        []Point `json:"next_5_years"`
}

// Forecaster produces linear forecasts for arbitrary-length series.
type Forecaster struct {
	opts Options
}

// New creates a Forecaster. A non-positive horizon falls back to the default.
func New(opts Options) *Forecaster {
	if opts.HorizonYears <= 0 {
		opts.HorizonYears = DefaultOptions().HorizonYears
	}
	return &Forecaster{opts: opts}
}

// Name returns the model identifier.
func (f *Forecaster) Name() string {
	return ModelName
}

// Predict forecasts the configured horizon from values.
func (f *Forecaster) Predict(values []float64) (Result, error) {
	if len(values) < MinPoints {
		return Result{}, validation.Invalid("At least %d data points are required for forecasting.", MinPoints)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, validation.Invalid("Forecast data contains NaN or infinite values.")
		}
	}

	p := Project(values, f.opts.StartYear, Window(f.opts.RecentWindow, len(values)), f.opts.HorizonYears)
	return Result{
		Model:       ModelName,
		WindowYears: p.WindowYears,
		FitR2:       series.Round(p.FitR2, 8),
		Next:        p.Points,
	}, nil
}
