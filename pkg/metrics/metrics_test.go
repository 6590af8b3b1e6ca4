package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("sympla", "success", 2*time.Second, 3, 1, 0)
	m.ObserveRun("sympla", "failed", time.Second, 0, 0, 0)
	m.ObserveRun("shopee", "partial", time.Second, 5, 0, 2)

	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("sympla", "success")); got != 1 {
		t.Errorf("expected 1 successful sympla run, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsTotal.WithLabelValues("shopee", "dropped")); got != 2 {
		t.Errorf("expected 2 dropped shopee items, got %v", got)
	}
	if got := testutil.ToFloat64(m.itemsTotal.WithLabelValues("sympla", "new")); got != 3 {
		t.Errorf("expected 3 new sympla items, got %v", got)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.FetchFailures("eventbrite", 2)
	m.FetchFailures("eventbrite", 0)
	m.Recalculated(7)

	if got := testutil.ToFloat64(m.fetchFailures.WithLabelValues("eventbrite")); got != 2 {
		t.Errorf("expected 2 fetch failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.recalculated); got != 7 {
		t.Errorf("expected 7 recalculations, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Recalculated(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "merchpulse_scores_recalculated_total 1") {
		t.Errorf("expected recalculation counter in output, got:\n%s", body)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun("x", "success", time.Second, 1, 1, 1)
	m.FetchFailures("x", 1)
	m.Recalculated(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}
