package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestHalfLifeCommand(t *testing.T) {
	input := mustJSON(t, map[string]any{"demand_data": linear(40, 100, -2)})

	out, err := run(t, input, "half-life", "--input", "-")
	require.NoError(t, err)

	var result struct {
		HalfLife struct {
			Year          float64 `json:"year"`
			YearsFromPeak float64 `json:"years_from_peak"`
		} `json:"half_life"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2010.0, result.HalfLife.Year)
	assert.Equal(t, 25.0, result.HalfLife.YearsFromPeak)
}

func TestHalfLifeCommand_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demand.json")
	require.NoError(t, os.WriteFile(path, []byte(mustJSON(t, map[string]any{"demand_data": linear(39, 100, -2)})), 0o600))

	_, err := run(t, "", "half-life", "-i", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 40 years")
}

func TestHalfLifeCommand_RequiresInput(t *testing.T) {
	_, err := run(t, "", "half-life")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestForecastCommand(t *testing.T) {
	input := mustJSON(t, map[string]any{"values": linear(20, 10, 1)})

	out, err := run(t, input, "forecast", "-i", "-", "--horizon", "2", "--start-year", "2000")
	require.NoError(t, err)

	var result struct {
		Next []struct {
			Year        int     `json:"year"`
			DemandIndex float64 `json:"demand_index"`
		} `json:"next_5_years"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Next, 2)
	assert.Equal(t, 2020, result.Next[0].Year)
	assert.InDelta(t, 30, result.Next[0].DemandIndex, 1e-6)
}

func TestForecastCommand_UnknownField(t *testing.T) {
	_, err := run(t, `{"values":[1,2,3],"extra":true}`, "forecast", "-i", "-")
	require.Error(t, err)
}

func TestPivotCommand(t *testing.T) {
	out, err := run(t, "", "pivot", "--skill", "Java Backend")
	require.NoError(t, err)
	assert.Contains(t, out, `"target_skill": "Python Backend"`)
	assert.Contains(t, out, `"learning_time_estimate": "12 months"`)
}

func TestPivotCommand_CustomCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	catalog := `profiles:
  - skill: Alpha Beta Gamma
    avg_salary: 100000
    demand_strength: 100
    volatility: 0
    automation_risk: 0
  - skill: Alpha
    avg_salary: 100000
    demand_strength: 100
    volatility: 30
    automation_risk: 100
  - skill: Beta
    avg_salary: 100000
    demand_strength: 100
    volatility: 0
    automation_risk: 100
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	out, err := run(t, "", "pivot", "-s", "Alpha Beta", "--catalog", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"target_skill": "Alpha Beta Gamma"`)

	out, err = run(t, "", "catalog", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 profiles OK")
}

func TestCatalogDefault(t *testing.T) {
	out, err := run(t, "", "catalog", "default")
	require.NoError(t, err)

	var doc struct {
		Profiles []map[string]any `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Profiles, 12)
}

func TestSimulateCommand(t *testing.T) {
	input := mustJSON(t, map[string]any{
		"demand_data":      linear(40, 100, -1.5),
		"salary_data":      linear(40, 60000, 0),
		"competition_data": linear(40, 40, 0),
	})

	out, err := run(t, input, "simulate", "-i", "-", "--demand-drop", "10", "--automation-increase", "25")
	require.NoError(t, err)
	assert.Contains(t, out, `"simulated_series"`)

	_, err = run(t, input, "simulate", "-i", "-", "--salary-shift", "200")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salary_shift_pct must be between")
}

func TestGapCommand(t *testing.T) {
	out, err := run(t, "", "gap", "--user", "Python,SQL", "--region", "python,Docker,Kubernetes")
	require.NoError(t, err)

	var result struct {
		Missing  []string `json:"missing_skills"`
		GapScore float64  `json:"gap_score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"Docker", "Kubernetes"}, result.Missing)
	assert.Equal(t, 66.6667, result.GapScore)
}

func TestSeedAndAnalyze(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "job_market.csv")
	dbPath := filepath.Join(dir, "jobs.db")

	var b strings.Builder
	b.WriteString("country,city,skill,year,demand_index,salary_estimate,job_openings,competition_index\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Germany,Berlin,Go,%d,%.2f,%d,%d,35\n", 1985+i, 100-1.3*float64(i), 50000+400*i, 400-i)
	}
	fmt.Fprintf(&b, "France,Paris,Go,2020,50,60000,100,40\n")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o600))

	out, err := run(t, "", "seed", "--db", dbPath, "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 41 rows for 2 region-skill pairs")

	out, err = run(t, "", "analyze", "--db", dbPath, "--country", "germany", "--city", "Berlin", "--skill", "GO")
	require.NoError(t, err)
	for _, field := range []string{`"half_life"`, `"forecast"`, `"radar_metrics"`, `"risk_level"`} {
		assert.Contains(t, out, field)
	}

	_, err = run(t, "", "analyze", "--db", dbPath, "--country", "France", "--city", "Paris", "--skill", "Go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected at least 40 yearly records")

	_, err = run(t, "", "analyze", "--db", dbPath, "--country", "Spain", "--city", "Madrid", "--skill", "Go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No job market data found")
}
