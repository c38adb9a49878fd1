package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_Init(t *testing.T) {
	// Init should not panic when called multiple times
	Init()
	Init()
}

func TestMetrics_Handler(t *testing.T) {
	Init()

	// Labelled series are exported only once a label value has been
	// observed, so touch each one (with labels TestMetrics_CollectorIncrement
	// does not check) before scraping.
	c := Collector{}
	c.IncQueryTotal("extended")
	c.ObserveQueryLatencySeconds("extended", 0.001)
	c.IncCopyRows("out", 1)
	c.IncAuthAttempt("failure")
	c.IncCancelRequest("unmatched")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"pgwire_iris_query_total",
		"pgwire_iris_query_latency_seconds",
		"pgwire_iris_sessions_active",
		"pgwire_iris_translate_cache_hits_total",
		"pgwire_iris_translate_cache_misses_total",
		"pgwire_iris_batch_degradations_total",
		"pgwire_iris_copy_rows_total",
		"pgwire_iris_auth_attempts_total",
		"pgwire_iris_cancel_requests_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric %q not found in response", metric)
		}
	}
}

func TestMetrics_CollectorIncrement(t *testing.T) {
	Init()
	c := Collector{}

	c.IncQueryTotal("simple")
	c.ObserveQueryLatencySeconds("simple", 0.001)
	c.IncSessionsActive(1)
	c.IncTranslateCacheHit()
	c.IncTranslateCacheMiss()
	c.IncBatchDegradation()
	c.IncCopyRows("in", 3)
	c.IncCopyFailure("out")
	c.IncAuthAttempt("success")
	c.IncCancelRequest("matched")
	c.SetPoolConnectionsActive(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `pgwire_iris_query_total{kind="simple"} 1`) {
		t.Error("expected pgwire_iris_query_total{kind=\"simple\"} 1 in output")
	}
	if !strings.Contains(body, `pgwire_iris_copy_rows_total{direction="in"} 3`) {
		t.Error("expected pgwire_iris_copy_rows_total{direction=\"in\"} 3 in output")
	}
}
