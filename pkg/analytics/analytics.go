// Package analytics composes the half-life, forecast, risk and radar
// analyses into one report for a region-skill pair.
package analytics

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/HatiCode/skillhalflife/pkg/forecast"
	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/radar"
	"github.com/HatiCode/skillhalflife/pkg/risk"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Key identifies a regional skill market.
type Key struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Skill   string `json:"skill"`
}

// Validate requires every component to be non-blank.
func (k Key) Validate() error {
	if strings.TrimSpace(k.Country) == "" || strings.TrimSpace(k.City) == "" || strings.TrimSpace(k.Skill) == "" {
		return validation.Invalid("country, city and skill are required.")
	}
	return nil
}

// ID returns the cache identifier of k. Each component is trimmed,
// case-folded and path-escaped, then the three are joined with "/", e.g.
// "germany/berlin/python%20backend". Distinct markets never share an ID.
func (k Key) ID() string {
	fold := cases.Fold()
	parts := [3]string{k.Country, k.City, k.Skill}
	for i, p := range parts {
		parts[i] = url.PathEscape(fold.String(strings.TrimSpace(p)))
	}
	return parts[0] + "/" + parts[1] + "/" + parts[2]
}

// Row is one year of market observations.
type Row struct {
	Year             int     `json:"year"`
	DemandIndex      float64 `json:"demand_index"`
	SalaryEstimate   float64 `json:"salary_estimate"`
	JobOpenings      int     `json:"job_openings"`
	CompetitionIndex float64 `json:"competition_index"`
}

// Options tunes the analyses run by Build.
type Options struct {
	RecentWindow  int
	ForecastYears int
}

// DefaultOptions returns a 12-year recent window and 5-year forecast.
func DefaultOptions() Options {
	return Options{RecentWindow: 12, ForecastYears: 5}
}

// Report is the composed analytics response.
type Report struct {
	Key              Key             `json:"key"`
	HalfLife         halflife.Result `json:"half_life"`
	Forecast         forecast.Result `json:"forecast"`
	StabilityProfile radar.Profile   `json:"stability_profile"`
	Volatility       float64         `json:"volatility"`
	Risk             risk.Score      `json:"risk"`
	RadarMetrics     radar.Metrics   `json:"radar_metrics"`
}

// Build analyses the most recent series.RequiredYears rows for key. Rows
// may arrive in any order; they are sorted by year first.
func Build(key Key, rows []Row, opts Options) (Report, error) {
	if len(rows) == 0 {
		return Report{}, validation.NotFound("No job market data found for country='%s', city='%s', skill='%s'.", key.Country, key.City, key.Skill)
	}
	if len(rows) < series.RequiredYears {
		return Report{}, validation.Insufficient("Expected at least %d yearly records for analytics, received %d.", series.RequiredYears, len(rows))
	}

	ordered := make([]Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Year < ordered[j].Year })
	ordered = ordered[len(ordered)-series.RequiredYears:]

	n := len(ordered)
	demand := make([]float64, n)
	salary := make([]float64, n)
	competition := make([]float64, n)
	for i, r := range ordered {
		demand[i] = r.DemandIndex
		salary[i] = r.SalaryEstimate
		competition[i] = r.CompetitionIndex
	}
	startYear := ordered[0].Year

	hl, err := halflife.Estimate(demand, halflife.Config{
		StartYear:     startYear,
		RecentWindow:  opts.RecentWindow,
		ForecastYears: opts.ForecastYears,
	})
	if err != nil {
		return Report{}, err
	}

	fc, err := forecast.New(forecast.Options{
		StartYear:    startYear,
		HorizonYears: opts.ForecastYears,
		RecentWindow: opts.RecentWindow,
	}).Predict(demand)
	if err != nil {
		return Report{}, err
	}

	assessment, err := risk.Evaluate(demand, competition, &hl)
	if err != nil {
		return Report{}, err
	}

	rd, err := radar.Build(&hl, demand, salary, competition, assessment.Volatility, assessment)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Key:              key,
		HalfLife:         hl,
		Forecast:         fc,
		StabilityProfile: rd.Profile,
		Volatility:       assessment.Volatility,
		Risk:             assessment.Risk,
		RadarMetrics:     rd.Metrics,
	}, nil
}
