// file: internal/metrics/metrics_test.go
// version: 2.0.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestRegisterIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestSearchLifecycle(t *testing.T) {
	mode := "test_lifecycle"
	IncSearchStarted(mode)
	IncSearchFinished(mode, true)
	IncSearchFinished(mode, false)
	IncSearchCancelled(mode)
	ObserveSearchDuration(mode, 25*time.Millisecond)

	if got := value(t, searchStarted.WithLabelValues(mode)); got != 1 {
		t.Errorf("expected 1 started search, got %v", got)
	}
	if got := value(t, searchFinished.WithLabelValues(mode, "match")); got != 1 {
		t.Errorf("expected 1 matched search, got %v", got)
	}
	if got := value(t, searchFinished.WithLabelValues(mode, "no_match")); got != 1 {
		t.Errorf("expected 1 unmatched search, got %v", got)
	}
	if got := value(t, searchCancelled.WithLabelValues(mode)); got != 1 {
		t.Errorf("expected 1 cancelled search, got %v", got)
	}
}

func TestSiteFetch(t *testing.T) {
	IncSiteFetch("test_engine", "ok")
	IncSiteFetch("test_engine", "ok")
	IncSiteCacheHit("test_engine")
	ObserveSiteFetchDuration("test_engine", time.Second)
	if got := value(t, siteFetches.WithLabelValues("test_engine", "ok")); got != 2 {
		t.Errorf("expected 2 fetches, got %v", got)
	}
}

func TestGauges(t *testing.T) {
	SetSessions(3)
	SetCatalogBooks(42)
	if got := value(t, sessionsGauge); got != 3 {
		t.Errorf("expected 3 sessions, got %v", got)
	}
	if got := value(t, catalogBooksGauge); got != 42 {
		t.Errorf("expected 42 books, got %v", got)
	}
}
