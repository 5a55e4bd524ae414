package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

var berlinPython = Key{Country: "Germany", City: "Berlin", Skill: "Python Backend"}

func history(startYear, n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Year:             startYear + i,
			DemandIndex:      120 - 2*float64(i),
			SalaryEstimate:   70000 + 1500*float64(i),
			JobOpenings:      1000 - 10*i,
			CompetitionIndex: 30 + float64(i%7),
		}
	}
	return rows
}

func TestBuild(t *testing.T) {
	got, err := Build(berlinPython, history(1986, 40), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, berlinPython, got.Key)
	assert.Equal(t, 1986, got.HalfLife.Input.StartYear)
	assert.Equal(t, 2025, got.HalfLife.Input.EndYear)
	assert.Equal(t, halflife.Observed, got.HalfLife.HalfLife.Method)
	assert.Equal(t, "linear_regression_recent_window", got.Forecast.Model)
	require.Len(t, got.Forecast.Next, 5)
	assert.Equal(t, 2026, got.Forecast.Next[0].Year)
	assert.Equal(t, got.HalfLife.Signals.VolatilityIndex, got.Volatility)
	assert.Equal(t, halflife.TrendDownward, got.StabilityProfile.TrendDirection)

	for _, v := range []float64{
		got.RadarMetrics.DemandStrength, got.RadarMetrics.SalaryGrowth, got.RadarMetrics.Competition,
		got.RadarMetrics.Volatility, got.RadarMetrics.AutomationRisk, got.Risk.RiskScore,
	} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestBuild_UsesMostRecentForty(t *testing.T) {
	rows := history(1980, 46)
	// reverse to check ordering does not matter
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	got, err := Build(berlinPython, rows, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1986, got.HalfLife.Input.StartYear)
	assert.Equal(t, 108.0, got.HalfLife.Peak.Value)
	assert.Equal(t, 1980, rows[len(rows)-1].Year, "input must not be reordered")
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		rows     []Row
		wantKind validation.Kind
		wantMsg  string
	}{
		{
			name:     "no rows",
			rows:     nil,
			wantKind: validation.KindNotFound,
			wantMsg:  "No job market data found for country='Germany', city='Berlin', skill='Python Backend'.",
		},
		{
			name:     "too few rows",
			rows:     history(2000, 12),
			wantKind: validation.KindInsufficient,
			wantMsg:  "Expected at least 40 yearly records for analytics, received 12.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(berlinPython, tt.rows, DefaultOptions())
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			kind, ok := validation.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, kind)
		})
	}

	flat := history(1986, 40)
	for i := range flat {
		flat[i].DemandIndex = 10
	}
	_, err := Build(berlinPython, flat, DefaultOptions())
	require.Error(t, err)
	kind, _ := validation.KindOf(err)
	assert.Equal(t, validation.KindInvalid, kind)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "germany/berlin/python%20backend", berlinPython.ID())
	assert.Equal(t, "united%20states/new%20york/c++%20dev", Key{Country: " United States ", City: "New York", Skill: "C++ Dev"}.ID())
	assert.Equal(t, "germany/m%C3%BCnchen/go", Key{Country: "Germany", City: "MÜNCHEN", Skill: "Go"}.ID())
	assert.Equal(t, berlinPython.ID(), Key{Country: "GERMANY ", City: "berlin", Skill: "python BACKEND"}.ID())
}

func TestKey_IDIsOneToOne(t *testing.T) {
	keys := []Key{
		{Country: "Germany", City: "Berlin", Skill: "C"},
		{Country: "Germany", City: "Berlin", Skill: "C++"},
		{Country: "Germany", City: "Berlin", Skill: "C#"},
		{Country: "Germany", City: "Berlin", Skill: "C/C++"},
		{Country: "Germany", City: "Berlin", Skill: "Python Backend"},
		{Country: "Germany", City: "Berlin", Skill: "Python-Backend"},
		{Country: "Germany", City: "Berlin/Mitte", Skill: "Go"},
		{Country: "Germany/Berlin", City: "Mitte", Skill: "Go"},
		{Country: "Germany", City: "München", Skill: "Go"},
		{Country: "Germany", City: "Munchen", Skill: "Go"},
	}

	seen := make(map[string]Key, len(keys))
	for _, k := range keys {
		id := k.ID()
		if prev, dup := seen[id]; dup {
			t.Errorf("%+v and %+v share ID %q", prev, k, id)
		}
		seen[id] = k
	}
}

func TestKey_Validate(t *testing.T) {
	assert.NoError(t, berlinPython.Validate())
	assert.Error(t, Key{Country: "DE", City: " ", Skill: "Go"}.Validate())
}
