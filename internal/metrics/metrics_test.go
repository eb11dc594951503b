package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNew_PrivateRegistries tests that two instances don't share collectors
func TestNew_PrivateRegistries(t *testing.T) {
	a := New()
	b := New()

	a.MapInitializations.Inc()

	if got := testutil.ToFloat64(a.MapInitializations); got != 1 {
		t.Errorf("expected 1 initialization, got %v", got)
	}
	if got := testutil.ToFloat64(b.MapInitializations); got != 0 {
		t.Errorf("expected second registry untouched, got %v", got)
	}
}

func TestMetrics_Gatherer(t *testing.T) {
	m := New()
	m.LookupsTotal.WithLabelValues("success").Inc()
	m.LookupErrors.WithLabelValues("timeout").Add(2)
	m.ActiveSessions.Set(3)

	count, err := testutil.GatherAndCount(m.Gatherer(),
		"ip_lookups_total", "ip_lookups_errors_total", "tracker_sessions_active")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 series, got %d", count)
	}

	expected := `
# HELP ip_lookups_errors_total Total number of failed lookups
# TYPE ip_lookups_errors_total counter
ip_lookups_errors_total{error_type="timeout"} 2
`
	if err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "ip_lookups_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.GeoAPIRequestsTotal.WithLabelValues("2xx").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`geo_api_requests_total{outcome="2xx"} 1`, "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}
