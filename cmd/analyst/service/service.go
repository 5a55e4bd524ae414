// Package service wires the analytics core to the job-market source, the
// report cache and the active pivot catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/HatiCode/skillhalflife/cmd/analyst/metrics"
	"github.com/HatiCode/skillhalflife/pkg/analytics"
	"github.com/HatiCode/skillhalflife/pkg/forecast"
	"github.com/HatiCode/skillhalflife/pkg/gap"
	"github.com/HatiCode/skillhalflife/pkg/halflife"
	"github.com/HatiCode/skillhalflife/pkg/marketdata"
	"github.com/HatiCode/skillhalflife/pkg/pivot"
	"github.com/HatiCode/skillhalflife/pkg/scenario"
	"github.com/HatiCode/skillhalflife/pkg/storage"
)

// Options are the analysis parameters shared by every request.
type Options struct {
	StartYear     int
	RecentWindow  int
	ForecastYears int
}

// computeTimeout bounds one shared source fetch and model run.
const computeTimeout = 30 * time.Second

// Service is safe for concurrent use.
type Service struct {
	source  marketdata.Source
	store   storage.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	opts    Options

	group   singleflight.Group
	catalog atomic.Pointer[pivot.Catalog]
}

// New creates a service using the default pivot catalog.
func New(source marketdata.Source, store storage.Store, m *metrics.Metrics, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		source:  source,
		store:   store,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
	s.SetCatalog(pivot.DefaultCatalog())
	return s
}

// SetCatalog replaces the catalog used by Pivots.
func (s *Service) SetCatalog(c pivot.Catalog) {
	s.catalog.Store(&c)
	s.metrics.RecordCatalogReload(len(c), nil)
}

func (s *Service) Catalog() pivot.Catalog {
	return *s.catalog.Load()
}

func (s *Service) halfLifeConfig() halflife.Config {
	return halflife.Config{
		StartYear:     s.opts.StartYear,
		RecentWindow:  s.opts.RecentWindow,
		ForecastYears: s.opts.ForecastYears,
	}
}

// Report returns the full analytics report for key, serving it from the
// cache when present. Concurrent misses for the same key share one
// computation. cached reports whether the cache answered.
func (s *Service) Report(ctx context.Context, key analytics.Key) (report analytics.Report, cached bool, err error) {
	if err := key.Validate(); err != nil {
		return analytics.Report{}, false, err
	}
	id := key.ID()

	snap, found, err := s.store.GetLatest(ctx, id)
	if err != nil {
		// cache failures are logged, not returned
		s.logger.Warn("report cache lookup failed", "key", id, "error", err)
		s.metrics.RecordError("store", "get")
	}
	s.metrics.RecordCache(found)
	if found {
		return snap.Report, true, nil
	}

	// the computation is shared, so one caller going away must not fail the rest
	v, err, _ := s.group.Do(id, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return s.compute(cctx, key)
	})
	if err != nil {
		return analytics.Report{}, false, err
	}
	return v.(analytics.Report), false, nil
}

func (s *Service) compute(ctx context.Context, key analytics.Key) (analytics.Report, error) {
	id := key.ID()

	fetchStart := time.Now()
	rows, err := s.source.Rows(ctx, key)
	s.metrics.RecordFetch(time.Since(fetchStart).Seconds())
	if err != nil {
		s.metrics.RecordError("source", "rows")
		return analytics.Report{}, fmt.Errorf("fetch %s rows: %w", s.source.Name(), err)
	}

	start := time.Now()
	report, err := analytics.Build(key, rows, analytics.Options{
		RecentWindow:  s.opts.RecentWindow,
		ForecastYears: s.opts.ForecastYears,
	})
	s.metrics.RecordAnalysis("full", time.Since(start).Seconds())
	if err != nil {
		return analytics.Report{}, err
	}

	if err := s.store.Put(ctx, storage.NewSnapshot(report, time.Now())); err != nil {
		s.logger.Warn("report cache write failed", "key", id, "error", err)
		s.metrics.RecordError("store", "put")
	}

	s.logger.Info("analytics report computed",
		"key", id,
		"rows", len(rows),
		"duration_ms", time.Since(fetchStart).Milliseconds(),
	)
	return report, nil
}

// Invalidate drops the cached report for key so the next request
// recomputes it from the source.
func (s *Service) Invalidate(ctx context.Context, key analytics.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := s.store.Invalidate(ctx, key.ID()); err != nil {
		s.metrics.RecordError("store", "invalidate")
		return fmt.Errorf("invalidate %s: %w", key.ID(), err)
	}
	s.logger.Info("analytics report invalidated", "key", key.ID())
	return nil
}

// HalfLife runs the half-life estimate on an ad-hoc demand series.
func (s *Service) HalfLife(demand []float64) (halflife.Result, error) {
	defer s.observe("half_life", time.Now())
	return halflife.Estimate(demand, s.halfLifeConfig())
}

// Forecast projects values with the recent-window linear model. A
// non-positive horizon uses the configured forecast length.
func (s *Service) Forecast(values []float64, horizon int) (forecast.Result, error) {
	defer s.observe("forecast", time.Now())
	if horizon <= 0 {
		horizon = s.opts.ForecastYears
	}
	f := forecast.New(forecast.Options{
		StartYear:    s.opts.StartYear,
		HorizonYears: horizon,
		RecentWindow: s.opts.RecentWindow,
	})
	return f.Predict(values)
}

// Pivots recommends target skills from the active catalog.
func (s *Service) Pivots(currentSkill string) (pivot.Recommendation, error) {
	defer s.observe("pivots", time.Now())
	return pivot.Recommend(currentSkill, s.Catalog())
}

func (s *Service) Simulate(demand, salary, competition []float64, shocks scenario.Shocks) (scenario.Result, error) {
	defer s.observe("simulation", time.Now())
	return scenario.Simulate(demand, salary, competition, shocks, s.halfLifeConfig())
}

func (s *Service) Gap(userSkills, regionSkills []string) gap.Analysis {
	defer s.observe("gap", time.Now())
	return gap.Compare(userSkills, regionSkills)
}

// Ping checks the cache and the job-market source.
func (s *Service) Ping(ctx context.Context) error {
	var errs []error
	if err := s.store.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.source.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("source %s: %w", s.source.Name(), err))
	}
	return errors.Join(errs...)
}

func (s *Service) observe(operation string, start time.Time) {
	s.metrics.RecordAnalysis(operation, time.Since(start).Seconds())
}
