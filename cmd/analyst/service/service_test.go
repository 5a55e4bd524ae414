package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/skillhalflife/cmd/analyst/metrics"
	"github.com/HatiCode/skillhalflife/pkg/analytics"
	"github.com/HatiCode/skillhalflife/pkg/pivot"
	"github.com/HatiCode/skillhalflife/pkg/scenario"
	"github.com/HatiCode/skillhalflife/pkg/storage"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

type fakeSource struct {
	rows    map[string][]analytics.Row
	calls   atomic.Int32
	block   chan struct{}
	err     error
	pingErr error
	ctxErrs chan error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Rows(ctx context.Context, key analytics.Key) ([]analytics.Row, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.ctxErrs != nil {
		f.ctxErrs <- ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[key.ID()], nil
}

func (f *fakeSource) Ping(context.Context) error { return f.pingErr }
func (f *fakeSource) Close() error               { return nil }

var berlin = analytics.Key{Country: "Germany", City: "Berlin", Skill: "Go"}

func decliningRows() []analytics.Row {
	rows := make([]analytics.Row, 40)
	for i := range rows {
		rows[i] = analytics.Row{
			Year:             1985 + i,
			DemandIndex:      100 - 1.3*float64(i),
			SalaryEstimate:   50000 + 400*float64(i),
			JobOpenings:      500 - i,
			CompetitionIndex: 30 + 0.5*float64(i),
		}
	}
	return rows
}

func newTestService(t *testing.T, src *fakeSource) (*Service, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry(), src.Name())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(src, storage.NewMemoryStore(storage.MemoryOptions{}), m, logger, Options{StartYear: 1985, RecentWindow: 12, ForecastYears: 5})
	return svc, m
}

func TestReport_CachesResult(t *testing.T) {
	src := &fakeSource{rows: map[string][]analytics.Row{berlin.ID(): decliningRows()}}
	svc, m := newTestService(t, src)
	ctx := context.Background()

	first, cached, err := svc.Report(ctx, berlin)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, berlin, first.Key)

	second, cached, err := svc.Report(ctx, analytics.Key{Country: "germany", City: "berlin", Skill: "go"})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.Risk, second.Risk)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	src := &fakeSource{rows: map[string][]analytics.Row{berlin.ID(): decliningRows()}}
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	_, _, err := svc.Report(ctx, berlin)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, berlin))

	_, cached, err := svc.Report(ctx, berlin)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int32(2), src.calls.Load())

	err = svc.Invalidate(ctx, analytics.Key{Country: "Germany"})
	kind, ok := validation.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, validation.KindInvalid, kind)
}

func TestReport_DistinctSkillsDoNotShareCache(t *testing.T) {
	keys := []analytics.Key{
		{Country: "Germany", City: "Berlin", Skill: "C++"},
		{Country: "Germany", City: "Berlin", Skill: "C#"},
		{Country: "Germany", City: "Berlin", Skill: "C"},
	}
	rows := make(map[string][]analytics.Row, len(keys))
	for _, k := range keys {
		rows[k.ID()] = decliningRows()
	}
	src := &fakeSource{rows: rows}
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	for _, k := range keys {
		report, cached, err := svc.Report(ctx, k)
		require.NoError(t, err)
		assert.False(t, cached, "first request for %q", k.Skill)
		assert.Equal(t, k.Skill, report.Key.Skill)
	}
	assert.Equal(t, int32(len(keys)), src.calls.Load())
}

func TestReport_CachesNonASCIIMarkets(t *testing.T) {
	munich := analytics.Key{Country: "Germany", City: "München", Skill: "Go"}
	src := &fakeSource{rows: map[string][]analytics.Row{munich.ID(): decliningRows()}}
	svc, _ := newTestService(t, src)
	ctx := context.Background()

	_, _, err := svc.Report(ctx, munich)
	require.NoError(t, err)

	report, cached, err := svc.Report(ctx, munich)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "München", report.Key.City)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestReport_SurvivesCallerCancellation(t *testing.T) {
	src := &fakeSource{
		rows:    map[string][]analytics.Row{berlin.ID(): decliningRows()},
		block:   make(chan struct{}),
		ctxErrs: make(chan error, 1),
	}
	svc, _ := newTestService(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Report(ctx, berlin)
		done <- err
	}()

	for src.calls.Load() == 0 {
		runtime.Gosched()
	}
	cancel()
	close(src.block)

	assert.NoError(t, <-src.ctxErrs, "source fetch should not see the caller's cancellation")
	require.NoError(t, <-done)

	_, cached, err := svc.Report(context.Background(), berlin)
	require.NoError(t, err)
	assert.True(t, cached, "report computed for a departed caller should be cached")
}

func TestReport_CoalescesConcurrentMisses(t *testing.T) {
	src := &fakeSource{
		rows:  map[string][]analytics.Row{berlin.ID(): decliningRows()},
		block: make(chan struct{}),
	}
	svc, _ := newTestService(t, src)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Report(context.Background(), berlin)
			errs <- err
		}()
	}

	// wait until a fetch is in flight
	for src.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(src.block)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, src.calls.Load(), int32(5))
	assert.GreaterOrEqual(t, src.calls.Load(), int32(1))
}

func TestReport_Errors(t *testing.T) {
	t.Run("invalid key", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeSource{})
		_, _, err := svc.Report(context.Background(), analytics.Key{Country: "Germany"})
		kind, ok := validation.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, validation.KindInvalid, kind)
	})

	t.Run("no rows", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeSource{rows: map[string][]analytics.Row{}})
		_, _, err := svc.Report(context.Background(), berlin)
		kind, ok := validation.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, validation.KindNotFound, kind)
	})

	t.Run("too few rows", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeSource{rows: map[string][]analytics.Row{berlin.ID(): decliningRows()[:10]}})
		_, _, err := svc.Report(context.Background(), berlin)
		kind, ok := validation.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, validation.KindInsufficient, kind)
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		svc, m := newTestService(t, &fakeSource{err: boom})
		_, _, err := svc.Report(context.Background(), berlin)
		require.ErrorIs(t, err, boom)
		assert.False(t, validation.Is(err))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("source", "rows")))
	})
}

func TestPivots_UsesActiveCatalog(t *testing.T) {
	svc, m := newTestService(t, &fakeSource{})

	rec, err := svc.Pivots("Java Backend")
	require.NoError(t, err)
	assert.Equal(t, "Python Backend", rec.Safe.TargetSkill)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CatalogSize))

	svc.SetCatalog(pivot.Catalog{
		{Skill: "Alpha Beta Gamma", AvgSalary: 100000, DemandStrength: 100},
		{Skill: "Alpha", AvgSalary: 100000, DemandStrength: 100, Volatility: 30, AutomationRisk: 100},
		{Skill: "Beta", AvgSalary: 100000, DemandStrength: 100, AutomationRisk: 100},
	})
	rec, err = svc.Pivots("Alpha Beta")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Beta Gamma", rec.Safe.TargetSkill)
	assert.Len(t, svc.Catalog(), 3)
}

func TestAdHocOperations(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{})
	demand := make([]float64, 40)
	salary := make([]float64, 40)
	competition := make([]float64, 40)
	for i := range demand {
		demand[i] = 100 - 2*float64(i)
		salary[i] = 60000
		competition[i] = 50
	}

	hl, err := svc.HalfLife(demand)
	require.NoError(t, err)
	year, ok := hl.YearsFromPeak()
	require.True(t, ok)
	assert.InDelta(t, 25, year, 1e-9)

	fc, err := svc.Forecast(demand, 0)
	require.NoError(t, err)
	assert.Len(t, fc.Next, 5)

	fc, err = svc.Forecast(demand, 3)
	require.NoError(t, err)
	assert.Len(t, fc.Next, 3)

	sim, err := svc.Simulate(demand, salary, competition, scenario.Shocks{DemandDropPct: 10})
	require.NoError(t, err)
	assert.Len(t, sim.Simulated.Demand, 40)

	g := svc.Gap([]string{"Go", "SQL"}, []string{"go", "Kubernetes"})
	assert.Equal(t, []string{"Kubernetes"}, g.MissingSkills)
}

func TestPing(t *testing.T) {
	svc, _ := newTestService(t, &fakeSource{})
	assert.NoError(t, svc.Ping(context.Background()))

	svc, _ = newTestService(t, &fakeSource{pingErr: errors.New("db down")})
	err := svc.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source fake: db down")
}
