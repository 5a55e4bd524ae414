package radar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/risk"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name                  string
		current, lower, upper float64
		want                  float64
	}{
		{"midpoint", 5, 0, 10, 50},
		{"above band", 15, 0, 10, 100},
		{"below band", -5, 0, 10, 0},
		{"collapsed band", 123, 7, 7, 50},
		{"nearly collapsed band", 0, 1e6, 1e6 + 1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.current, tt.lower, tt.upper); got != tt.want {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSalaryGrowth(t *testing.T) {
	assert.Equal(t, 50.0, SalaryGrowth(nil))
	assert.Equal(t, 50.0, SalaryGrowth([]float64{100}))
	assert.Equal(t, 29.4118, SalaryGrowth(flat(40, 90000)))
	assert.Equal(t, 100.0, SalaryGrowth([]float64{1, 2}))
	assert.Equal(t, 29.4118, SalaryGrowth([]float64{0, 0, 0}), "floored endpoints give zero growth")
}

func TestBuild(t *testing.T) {
	years := 10.0
	hl := &halflife.Result{
		HalfLife: halflife.Crossing{YearsFromPeak: &years},
		Signals: halflife.Signals{
			StabilityScore:  70,
			ConfidenceScore: 80,
			TrendDirection:  halflife.TrendUpward,
		},
	}
	assessment := risk.Assessment{Risk: risk.Score{RiskScore: 30}}

	got, err := Build(hl, ramp(40), flat(40, 90000), flat(40, 5), 20, assessment)
	require.NoError(t, err)

	assert.Equal(t, Metrics{
		DemandStrength: 100,
		SalaryGrowth:   29.4118,
		Competition:    50,
		Volatility:     20,
		AutomationRisk: 31.64,
	}, got.Metrics)
	assert.Equal(t, Profile{
		Status:           StatusStable,
		TrendDirection:   halflife.TrendUpward,
		StabilityScore:   70,
		ConfidenceScore:  80,
		HalfLifeHealth:   65,
		VolatilityHealth: 80,
		RiskHealth:       70,
	}, got.Profile)
}

func TestBuild_WithoutHalfLife(t *testing.T) {
	got, err := Build(nil, ramp(40), ramp(40), ramp(40), 0, risk.Assessment{})
	require.NoError(t, err)

	assert.Equal(t, StatusAtRisk, got.Profile.Status)
	assert.Equal(t, halflife.TrendFlat, got.Profile.TrendDirection)
	assert.Equal(t, 40.0, got.Profile.HalfLifeHealth)
	assert.Equal(t, 100.0, got.Profile.RiskHealth)
}

func TestBuild_StatusBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		stability float64
		riskScore float64
		want      Status
	}{
		{"stable", 65, 44.9999, StatusStable},
		{"risk at threshold", 65, 45, StatusAtRisk},
		{"stability below threshold", 64.9999, 10, StatusAtRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hl := &halflife.Result{Signals: halflife.Signals{StabilityScore: tt.stability}}
			got, err := Build(hl, ramp(40), ramp(40), ramp(40), 10, risk.Assessment{Risk: risk.Score{RiskScore: tt.riskScore}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Profile.Status)
		})
	}
}

func TestBuild_AxesBounded(t *testing.T) {
	got, err := Build(nil, ramp(40), []float64{0, 1e9}, flat(40, 3), 250, risk.Assessment{Risk: risk.Score{RiskScore: 100}})
	require.NoError(t, err)
	for _, v := range []float64{got.Metrics.DemandStrength, got.Metrics.SalaryGrowth, got.Metrics.Competition, got.Metrics.Volatility, got.Metrics.AutomationRisk} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, nil, ramp(3), ramp(3), 0, risk.Assessment{})
	require.Error(t, err)
	assert.True(t, validation.Is(err))
}
