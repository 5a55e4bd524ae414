// Package halflife estimates how quickly demand for a skill decays after its
// peak, and derives volatility, stability, trend and confidence signals from
// the same 40-year series.
package halflife

import (
	"math"

	"github.com/HatiCode/skillhalflife/pkg/forecast"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Method tells how the half-life year was obtained.
type Method string

const (
	Observed           Method = "observed"
	RegressionEstimate Method = "regression_estimate"
	NotReached         Method = "not_reached"
)

// Trend is the direction of the recent-window slope.
type Trend string

const (
	TrendUpward   Trend = "upward"
	TrendDownward Trend = "downward"
	TrendFlat     Trend = "flat"
)

// trendEpsilon is the slope magnitude below which a trend counts as flat.
const trendEpsilon = 1e-4

// Config controls year labelling and the forecast attached to a result.
type Config struct {
	StartYear     int
	RecentWindow  int
	ForecastYears int
}

// DefaultConfig returns the standard configuration: years from 1985, a
// 12-year recent window and a 5-year forecast.
func DefaultConfig() Config {
	return Config{
		StartYear:     1985,
		RecentWindow:  12,
		ForecastYears: 5,
	}
}

type Input struct {
	Count     int `json:"count"`
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

type Peak struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

type Decay struct {
	PostPeakSlope      float64 `json:"post_peak_slope"`
	HalfValueThreshold float64 `json:"half_value_threshold"`
}

// Crossing locates the half-value point. Year and YearsFromPeak are nil when
// demand has not halved and no declining trend predicts it.
type Crossing struct {
	Year          *float64 `json:"year"`
	YearsFromPeak *float64 `json:"years_from_peak"`
	Method        Method   `json:"estimation_method"`
}

type Signals struct {
	StabilityScore  float64 `json:"stability_score"`
	VolatilityIndex float64 `json:"volatility_index"`
	TrendDirection  Trend   `json:"trend_direction"`
	ConfidenceScore float64 `json:"confidence_score"`
}

type Forecast struct {
	Model       string           `json:"model"`
	WindowYears int              `json:"window_years"`
	RecentSlope float64          `json:"recent_slope"`
	FitR2       float64          `json:"fit_r2"`
	Next        []forecast.Point `json:"next_5_years"`
}

type Quality struct {
	PostPeakFitR2   float64 `json:"post_peak_fit_r2"`
	PeakToLastDelta float64 `json:"peak_to_last_delta"`
}

// Result is the full half-life analysis of one demand series.
type Result struct {
	Input    Input    `json:"input"`
	Peak     Peak     `json:"peak"`
	Decay    Decay    `json:"decay"`
	HalfLife Crossing `json:"half_life"`
	Signals  Signals  `json:"signals"`
	Forecast Forecast `json:"forecast"`
	Quality  Quality  `json:"quality"`
}

// Estimate analyses a demand series of exactly series.RequiredYears points.
func Estimate(demand []float64, cfg Config) (Result, error) {
	if err := series.Validate(demand, series.RequiredYears); err != nil {
		return Result{}, err
	}
	if cfg.ForecastYears < 1 {
		return Result{}, validation.Invalid("forecast_years must be at least 1.")
	}

	n := len(demand)
	years := series.Years(cfg.StartYear, n)

	peakIdx := 0
	for i := 1; i < n; i++ {
		if demand[i] > demand[peakIdx] {
			peakIdx = i
		}
	}
	if peakIdx >= n-2 {
		return Result{}, validation.Invalid("Insufficient post-peak observations to compute decay dynamics.")
	}

	peakValue := demand[peakIdx]
	peakYear := cfg.StartYear + peakIdx
	postYears := years[peakIdx:]
	postValues := demand[peakIdx:]

	postLine, postR2 := series.Fit(postYears, postValues)
	halfValue := peakValue / 2

	crossing := Crossing{Method: NotReached}
	if year, ok := observedCrossing(postYears, postValues, halfValue); ok {
		crossing.Year = &year
		crossing.Method = Observed
	} else if postLine.Slope < 0 {
		est := postLine.Solve(halfValue)
		if est >= postYears[0] {
			crossing.Year = &est
			crossing.Method = RegressionEstimate
		}
	}
	if crossing.Year != nil {
		fromPeak := series.Round(*crossing.Year-float64(peakYear), 6)
		year := series.Round(*crossing.Year, 6)
		crossing.Year = &year
		crossing.YearsFromPeak = &fromPeak
	}

	proj := forecast.Project(demand, cfg.StartYear, forecast.Window(cfg.RecentWindow, n), cfg.ForecastYears)

	volatility := volatilityIndex(demand)
	stability := series.Score(100 -
		0.55*volatility -
		0.35*math.Max(0, -postLine.Slope) -
		0.25*math.Max(0, -proj.Slope))

	detection := 0.75
	if crossing.Method == Observed {
		detection = 1.0
	}
	confidence := series.Score(100 * (0.30*math.Min(1, float64(len(postValues))/15) +
		0.35*series.Clamp((postR2+proj.FitR2)/2, 0, 1) +
		0.20*math.Max(0, 1-volatility/100) +
		0.15*detection))

	return Result{
		Input: Input{
			Count:     n,
			StartYear: cfg.StartYear,
			EndYear:   cfg.StartYear + n - 1,
		},
		Peak: Peak{Year: peakYear, Value: series.Round(peakValue, 6)},
		Decay: Decay{
			PostPeakSlope:      series.Round(postLine.Slope, 8),
			HalfValueThreshold: series.Round(halfValue, 6),
		},
		HalfLife: crossing,
		Signals: Signals{
			StabilityScore:  stability,
			VolatilityIndex: volatility,
			TrendDirection:  TrendOf(proj.Slope),
			ConfidenceScore: confidence,
		},
		Forecast: Forecast{
			Model:       forecast.ModelName,
			WindowYears: proj.WindowYears,
			RecentSlope: series.Round(proj.Slope, 8),
			FitR2:       series.Round(proj.FitR2, 8),
			Next:        proj.Points,
		},
		Quality: Quality{
			PostPeakFitR2:   series.Round(postR2, 8),
			PeakToLastDelta: series.Round(demand[n-1]-peakValue, 6),
		},
	}, nil
}

// observedCrossing scans forward for the first adjacent pair that brackets
// threshold from above and interpolates the fractional year.
func observedCrossing(years, values []float64, threshold float64) (float64, bool) {
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev >= threshold && threshold >= cur && !series.IsClose(prev, cur) {
			y0, y1 := years[i-1], years[i]
			return y0 + (threshold-prev)*(y1-y0)/(cur-prev), true
		}
	}
	return 0, false
}

// volatilityIndex blends dispersion of first differences, scaled by the series
// mean, with dispersion of period-over-period returns.
func volatilityIndex(values []float64) float64 {
	mean := series.Mean(values)
	if series.IsClose(mean, 0) {
		mean = 1
	}
	diffVol := series.StdDev(series.Diff(values)) / mean
	returnVol := series.StdDev(series.Returns(values))
	return series.Score((0.6*diffVol + 0.4*returnVol) * 300)
}

// TrendOf classifies a slope.
func TrendOf(slope float64) Trend {
	switch {
	case slope > trendEpsilon:
		return TrendUpward
	case slope < -trendEpsilon:
		return TrendDownward
	default:
		return TrendFlat
	}
}

// YearsFromPeak returns the half-life distance if known.
func (r Result) YearsFromPeak() (float64, bool) {
	if r.HalfLife.YearsFromPeak == nil {
		return 0, false
	}
	return *r.HalfLife.YearsFromPeak, true
}
