package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestObservePersist verifies outcomes are labelled by error.
func TestObservePersist(t *testing.T) {
	m := NewTest()
	m.ObservePersist("session", nil)
	m.ObservePersist("session", nil)
	m.ObservePersist("session", errors.New("db down"))

	if got := testutil.ToFloat64(m.PersistTotal.WithLabelValues("session", OutcomeOK)); got != 2 {
		t.Errorf("ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PersistTotal.WithLabelValues("session", OutcomeError)); got != 1 {
		t.Errorf("error = %v, want 1", got)
	}
}

// TestNilMetrics verifies a nil *Metrics is safe to report to.
func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObservePersist("plan", nil)
	m.SetDirty("plan", 3)
	m.ObserveSync(nil)
	m.ObserveNutrition(nil)
}

// TestHandler verifies the private registry is exposed.
func TestHandler(t *testing.T) {
	m := NewTest()
	m.SetDirty("plan", 2)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `wotracker_dirty_entities{entity="plan"} 2`) {
		t.Errorf("body missing dirty gauge:\n%s", w.Body.String())
	}
}
