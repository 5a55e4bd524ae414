// Package scenario applies percentage shocks to historical market series and
// recomputes half-life, stability and risk under the shocked data.
package scenario

import (
	"math"

	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/risk"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

// Shocks are percentage perturbations; 12.5 means +12.5%.
type Shocks struct {
	AutomationIncreasePct float64 `json:"automation_increase_pct"`
	DemandDropPct         float64 `json:"demand_drop_pct"`
	SalaryShiftPct        float64 `json:"salary_shift_pct"`
}

type bounds struct {
	name     string
	min, max float64
}

var (
	automationBounds = bounds{"automation_increase_pct", -50, 300}
	demandDropBounds = bounds{"demand_drop_pct", -95, 100}
	salaryBounds     = bounds{"salary_shift_pct", -95, 150}
)

func (b bounds) check(v float64) error {
	if math.IsNaN(v) || v < b.min || v > b.max {
		return validation.Invalid("%s must be between %.1f and %.1f.", b.name, b.min, b.max)
	}
	return nil
}

// Validate checks every shock against its allowed range.
func (s Shocks) Validate() error {
	if err := automationBounds.check(s.AutomationIncreasePct); err != nil {
		return err
	}
	if err := demandDropBounds.check(s.DemandDropPct); err != nil {
		return err
	}
	return salaryBounds.check(s.SalaryShiftPct)
}

type Stability struct {
	StabilityScore  float64        `json:"stability_score"`
	TrendDirection  halflife.Trend `json:"trend_direction"`
	ConfidenceScore float64        `json:"confidence_score"`
}

type Risk struct {
	RiskScore     float64    `json:"risk_score"`
	RiskLevel     risk.Level `json:"risk_level"`
	BaseRiskScore float64    `json:"base_risk_score"`
}

// Simulated holds the shocked copies of the input series.
type Simulated struct {
	Demand      []float64 `json:"demand"`
	Salary      []float64 `json:"salary"`
	Competition []float64 `json:"competition"`
}

// Result is the outcome of one scenario.
type Result struct {
	HalfLife  halflife.Crossing `json:"half_life"`
	Stability Stability         `json:"stability"`
	Risk      Risk              `json:"risk"`
	Simulated Simulated         `json:"simulated_series"`
}

// Simulate shocks the three series and re-runs the half-life and risk
// analyses on the result. The input slices are not modified.
func Simulate(demand, salary, competition []float64, shocks Shocks, cfg halflife.Config) (Result, error) {
	if len(demand) != series.RequiredYears {
		return Result{}, validation.Invalid("demand_data must contain exactly %d years.", series.RequiredYears)
	}
	if len(salary) != len(demand) || len(competition) != len(demand) {
		return Result{}, validation.Invalid("salary_data and competition_data must match demand_data length.")
	}
	if err := shocks.Validate(); err != nil {
		return Result{}, err
	}

	dropFactor := math.Max(0, 1-shocks.DemandDropPct/100)
	automationFactor := math.Max(0, 1+shocks.AutomationIncreasePct/100)
	salaryFactor := math.Max(0, 1+shocks.SalaryShiftPct/100)
	competitionFactor := 1 + (automationFactor-1)*0.45 + math.Max(0, shocks.DemandDropPct)/200

	gradient := series.Linspace(0, 1, len(demand))
	sim := Simulated{
		Demand:      make([]float64, len(demand)),
		Salary:      make([]float64, len(salary)),
		Competition: make([]float64, len(competition)),
	}
	for i := range demand {
		// later years feel more automation pressure
		pressure := math.Max(0.25, 1-(automationFactor-1)*0.35*gradient[i])
		sim.Demand[i] = math.Max(0, demand[i]*dropFactor*pressure)
		sim.Salary[i] = math.Max(0, salary[i]*salaryFactor)
		sim.Competition[i] = math.Max(0, competition[i]*competitionFactor)
	}

	hl, err := halflife.Estimate(sim.Demand, cfg)
	if err != nil {
		return Result{}, validation.Wrap("simulation", err)
	}
	base, err := risk.Evaluate(sim.Demand, sim.Competition, &hl)
	if err != nil {
		return Result{}, validation.Wrap("simulation", err)
	}

	baseRisk := base.Risk.RiskScore
	adjusted := series.Clamp(baseRisk+
		0.22*math.Max(0, shocks.AutomationIncreasePct)+
		0.28*math.Max(0, shocks.DemandDropPct)+
		0.18*math.Max(0, -shocks.SalaryShiftPct), 0, 100)

	stability := series.Clamp(hl.Signals.StabilityScore-
		0.30*math.Max(0, shocks.AutomationIncreasePct)-
		0.35*math.Max(0, shocks.DemandDropPct)+
		0.15*math.Max(0, shocks.SalaryShiftPct), 0, 100)

	return Result{
		HalfLife: hl.HalfLife,
		Stability: Stability{
			StabilityScore:  series.Round(stability, 4),
			TrendDirection:  hl.Signals.TrendDirection,
			ConfidenceScore: hl.Signals.ConfidenceScore,
		},
		Risk: Risk{
			RiskScore:     series.Round(adjusted, 4),
			RiskLevel:     risk.LevelOf(adjusted),
			BaseRiskScore: series.Round(baseRisk, 4),
		},
		Simulated: sim,
	}, nil
}
