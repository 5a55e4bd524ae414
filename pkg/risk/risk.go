// Package risk scores the volatility and market risk of a regional skill.
package risk

import (
	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Level buckets a risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

const (
	weightVolatility  = 0.42
	weightCompetition = 0.28
	weightHalfLife    = 0.20
	weightConfidence  = 0.10

	defaultConfidence   = 50.0
	unknownHalfLifeRisk = 25.0
)

type Drivers struct {
	CompetitionPressure float64 `json:"competition_pressure"`
	DemandVolatility    float64 `json:"demand_volatility"`
	ConfidencePenalty   float64 `json:"confidence_penalty"`
}

type Score struct {
	RiskScore float64 `json:"risk_score"`
	RiskLevel Level   `json:"risk_level"`
	Drivers   Drivers `json:"drivers"`
}

// Assessment is the volatility index and composite risk for one series pair.
type Assessment struct {
	Volatility float64 `json:"volatility"`
	Risk       Score   `json:"risk"`
}

// Evaluate scores demand and competition series. hl may be nil, in which case
// volatility is derived from demand returns and confidence defaults to 50.
func Evaluate(demand, competition []float64, hl *halflife.Result) (Assessment, error) {
	if len(demand) < 2 {
		return Assessment{}, validation.Invalid("Risk evaluation requires at least 2 demand points; received %d.", len(demand))
	}
	if len(competition) != len(demand) {
		return Assessment{}, validation.Invalid("competition_data must have the same length as demand_data.")
	}

	demandVolatility := series.StdDev(series.Returns(demand))
	competitionPressure := series.Mean(competition)

	volatility := series.Clamp(demandVolatility*500, 0, 100)
	confidence := defaultConfidence
	halfLifeRisk := unknownHalfLifeRisk
	if hl != nil {
		volatility = hl.Signals.VolatilityIndex
		confidence = hl.Signals.ConfidenceScore
		if years, ok := hl.YearsFromPeak(); ok {
			halfLifeRisk = series.Clamp(100-years*2, 0, 100)
		}
	}

	score := series.Clamp(weightVolatility*volatility+
		weightCompetition*competitionPressure+
		weightHalfLife*halfLifeRisk+
		weightConfidence*(100-confidence), 0, 100)

	return Assessment{
		Volatility: series.Round(volatility, 4),
		Risk: Score{
			RiskScore: series.Round(score, 4),
			RiskLevel: LevelOf(score),
			Drivers: Drivers{
				CompetitionPressure: series.Round(competitionPressure, 4),
				DemandVolatility:    series.Round(demandVolatility, 6),
				ConfidencePenalty:   series.Round(100-confidence, 4),
			},
		},
	}, nil
}

// LevelOf maps a score to its level: 70 and above is high, 40 and above medium.
func LevelOf(score float64) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}
