// Package radar normalizes market series and signals into five 0-100 radar
// axes plus a stability profile.
package radar

import (
	"math"

	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/risk"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Status is the overall stability classification.
type Status string

const (
	StatusStable Status = "stable"
	StatusAtRisk Status = "at_risk"
)

const (
	bandLower = 10
	bandUpper = 90

	cagrLower   = -0.05
	cagrUpper   = 0.12
	salaryFloor = 1e-6

	stableScoreMin = 65
	stableRiskMax  = 45
)

// Metrics are the five radar axes.
type Metrics struct {
	DemandStrength float64 `json:"demand_strength"`
	SalaryGrowth   float64 `json:"salary_growth"`
	Competition    float64 `json:"competition"`
	Volatility     float64 `json:"volatility"`
	AutomationRisk float64 `json:"automation_risk"`
}

// Profile summarizes stability for display.
type Profile struct {
	Status           Status         `json:"status"`
	TrendDirection   halflife.Trend `json:"trend_direction"`
	StabilityScore   float64        `json:"stability_score"`
	ConfidenceScore  float64        `json:"confidence_score"`
	HalfLifeHealth   float64        `json:"half_life_health"`
	VolatilityHealth float64        `json:"volatility_health"`
	RiskHealth       float64        `json:"risk_health"`
}

// Radar is the combined output of Build.
type Radar struct {
	Profile Profile `json:"stability_profile"`
	Metrics Metrics `json:"radar_metrics"`
}

// Build derives the radar from a half-life result (nil when unavailable),
// the three market series, the volatility index and the risk assessment.
func Build(hl *halflife.Result, demand, salary, competition []float64, volatility float64, assessment risk.Assessment) (Radar, error) {
	if len(demand) == 0 || len(competition) == 0 {
		return Radar{}, validation.Invalid("Radar metrics require non-empty demand and competition data.")
	}

	var (
		stability  float64
		confidence float64
		trend      = halflife.TrendFlat
		yearsKnown bool
		years      float64
	)
	if hl != nil {
		stability = hl.Signals.StabilityScore
		confidence = hl.Signals.ConfidenceScore
		if hl.Signals.TrendDirection != "" {
			trend = hl.Signals.TrendDirection
		}
		years, yearsKnown = hl.YearsFromPeak()
	}

	demandStrength := bandPosition(demand)
	salaryGrowth := SalaryGrowth(salary)
	competitionScore := bandPosition(competition)
	volatilityScore := series.Score(volatility)

	halfLifeRisk := 45.0
	if yearsKnown {
		halfLifeRisk = series.Score(100 - years*2.2)
	}
	automation := series.Score(0.28*volatilityScore +
		0.24*competitionScore +
		0.22*(100-demandStrength) +
		0.18*halfLifeRisk +
		0.08*trendPenalty(trend))

	halfLifeHealth := 40.0
	if yearsKnown {
		halfLifeHealth = series.Clamp(100-years*3.5, 0, 100)
	}
	riskScore := assessment.Risk.RiskScore

	status := StatusAtRisk
	if stability >= stableScoreMin && riskScore < stableRiskMax {
		status = StatusStable
	}

	return Radar{
		Profile: Profile{
			Status:           status,
			TrendDirection:   trend,
			StabilityScore:   series.Round(stability, 4),
			ConfidenceScore:  series.Round(confidence, 4),
			HalfLifeHealth:   series.Round(halfLifeHealth, 4),
			VolatilityHealth: series.Round(series.Clamp(100-volatilityScore, 0, 100), 4),
			RiskHealth:       series.Round(series.Clamp(100-riskScore, 0, 100), 4),
		},
		Metrics: Metrics{
			DemandStrength: series.Score(demandStrength),
			SalaryGrowth:   series.Score(salaryGrowth),
			Competition:    series.Score(competitionScore),
			Volatility:     series.Score(volatilityScore),
			AutomationRisk: automation,
		},
	}, nil
}

// Normalize maps current onto [lower, upper] as 0..100. A collapsed band
// returns the midpoint 50.
func Normalize(current, lower, upper float64) float64 {
	if series.IsClose(upper, lower) {
		return 50
	}
	return series.Score((current - lower) / (upper - lower) * 100)
}

// bandPosition places the final value within the series' own 10th-90th
// percentile band.
func bandPosition(values []float64) float64 {
	return Normalize(values[len(values)-1], series.Percentile(values, bandLower), series.Percentile(values, bandUpper))
}

// SalaryGrowth maps the compound annual growth rate of salary onto the
// -5%..+12% range. Fewer than two points score 50.
func SalaryGrowth(salary []float64) float64 {
	if len(salary) < 2 {
		return 50
	}
	start := math.Max(salary[0], salaryFloor)
	end := math.Max(salary[len(salary)-1], salaryFloor)
	years := math.Max(1, float64(len(salary)-1))
	cagr := math.Pow(end/start, 1/years) - 1
	return Normalize(cagr, cagrLower, cagrUpper)
}

func trendPenalty(t halflife.Trend) float64 {
	switch t {
	case halflife.TrendDownward:
		return 20
	case halflife.TrendFlat:
		return 10
	default:
		return 0
	}
}
