package scenario

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/risk"
	"github.com/HatiCode/skillhalflife/pkg/series"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

func fill(n int, fn func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func inputs() (demand, salary, competition []float64) {
	demand = fill(40, func(i int) float64 { return 100 - 1.5*float64(i) })
	salary = fill(40, func(i int) float64 { return 80000 + 1000*float64(i) })
	competition = fill(40, func(i int) float64 { return 40 + float64(i%5) })
	return
}

func TestSimulate_NoShock(t *testing.T) {
	demand, salary, competition := inputs()

	got, err := Simulate(demand, salary, competition, Shocks{}, halflife.DefaultConfig())
	require.NoError(t, err)

	hl, err := halflife.Estimate(demand, halflife.DefaultConfig())
	require.NoError(t, err)
	base, err := risk.Evaluate(demand, competition, &hl)
	require.NoError(t, err)

	assert.Equal(t, hl.HalfLife, got.HalfLife)
	assert.Equal(t, hl.Signals.StabilityScore, got.Stability.StabilityScore)
	assert.Equal(t, hl.Signals.TrendDirection, got.Stability.TrendDirection)
	assert.Equal(t, base.Risk.RiskScore, got.Risk.BaseRiskScore)
	assert.Equal(t, base.Risk.RiskScore, got.Risk.RiskScore)
	assert.Equal(t, demand, got.Simulated.Demand)
	assert.Equal(t, salary, got.Simulated.Salary)
}

func TestSimulate_Shocks(t *testing.T) {
	demand, salary, competition := inputs()
	shocks := Shocks{AutomationIncreasePct: 100, DemandDropPct: 20, SalaryShiftPct: -10}

	got, err := Simulate(demand, salary, competition, shocks, halflife.DefaultConfig())
	require.NoError(t, err)

	// automation factor 2: pressure falls linearly from 1 to 0.65
	assert.InDelta(t, demand[0]*0.8, got.Simulated.Demand[0], 1e-9)
	assert.InDelta(t, demand[39]*0.8*0.65, got.Simulated.Demand[39], 1e-9)
	assert.InDelta(t, salary[5]*0.9, got.Simulated.Salary[5], 1e-9)
	assert.InDelta(t, competition[3]*1.55, got.Simulated.Competition[3], 1e-9)
	assert.Equal(t, 100.0, demand[0])

	hl, err := halflife.Estimate(got.Simulated.Demand, halflife.DefaultConfig())
	require.NoError(t, err)
	base, err := risk.Evaluate(got.Simulated.Demand, got.Simulated.Competition, &hl)
	require.NoError(t, err)

	wantRisk := math.Min(100, base.Risk.RiskScore+22+5.6+1.8)
	assert.InDelta(t, series.Round(wantRisk, 4), got.Risk.RiskScore, 1e-9)
	assert.Equal(t, risk.LevelOf(wantRisk), got.Risk.RiskLevel)

	wantStability := math.Max(0, hl.Signals.StabilityScore-30-7)
	assert.InDelta(t, series.Round(wantStability, 4), got.Stability.StabilityScore, 1e-9)
}

func TestSimulate_FullDemandDrop(t *testing.T) {
	demand, salary, competition := inputs()

	_, err := Simulate(demand, salary, competition, Shocks{DemandDropPct: 100}, halflife.DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, "simulation: Demand data has no variation; half-life analytics is not meaningful.", err.Error())
	kind, ok := validation.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindInvalid, kind)
}

func TestSimulate_InputErrors(t *testing.T) {
	demand, salary, competition := inputs()

	tests := []struct {
		name        string
		demand      []float64
		salary      []float64
		competition []float64
		shocks      Shocks
		wantMsg     string
	}{
		{"short demand", demand[:39], salary[:39], competition[:39], Shocks{}, "demand_data must contain exactly 40 years."},
		{"salary length", demand, salary[:10], competition, Shocks{}, "salary_data and competition_data must match demand_data length."},
		{"automation too high", demand, salary, competition, Shocks{AutomationIncreasePct: 300.5}, "automation_increase_pct must be between -50.0 and 300.0."},
		{"automation too low", demand, salary, competition, Shocks{AutomationIncreasePct: -51}, "automation_increase_pct must be between -50.0 and 300.0."},
		{"demand drop too high", demand, salary, competition, Shocks{DemandDropPct: 101}, "demand_drop_pct must be between -95.0 and 100.0."},
		{"salary too low", demand, salary, competition, Shocks{SalaryShiftPct: -96}, "salary_shift_pct must be between -95.0 and 150.0."},
		{"salary nan", demand, salary, competition, Shocks{SalaryShiftPct: math.NaN()}, "salary_shift_pct must be between -95.0 and 150.0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Simulate(tt.demand, tt.salary, tt.competition, tt.shocks, halflife.DefaultConfig())
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, validation.Is(err))
		})
	}
}

func TestShocks_ValidateBoundaries(t *testing.T) {
	edges := []Shocks{
		{AutomationIncreasePct: -50, DemandDropPct: -95, SalaryShiftPct: -95},
		{AutomationIncreasePct: 300, DemandDropPct: 100, SalaryShiftPct: 150},
	}
	for _, s := range edges {
		assert.NoError(t, s.Validate())
	}
}
