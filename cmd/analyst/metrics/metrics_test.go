package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "sqlite")

	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordError("source", "timeout")
	m.RecordCatalogReload(12, nil)
	m.RecordCatalogReload(0, errors.New("bad yaml"))

	if got := testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("source", "timeout")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CatalogSize); got != 12 {
		t.Errorf("catalog size = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.CatalogReloads.WithLabelValues("error")); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "http")

	m.RecordAnalysis("full", 0.002)
	m.RecordFetch(0.05)

	n, err := testutil.GatherAndCount(reg, "skillhalflife_analysis_seconds", "skillhalflife_source_fetch_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("gathered %d series, want 2", n)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry(), "sqlite")
	New(prometheus.NewRegistry(), "sqlite")
}
