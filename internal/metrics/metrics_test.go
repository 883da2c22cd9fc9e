package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewIsolatedRegistries(t *testing.T) {
	a := New()
	b := New()
	if a.Registry == b.Registry {
		t.Fatalf("expected independent registries")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/clients", 200, 20*time.Millisecond)
	m.IncStoreWrite("clients", "put", nil)
	m.IncStoreWrite("clients", "put", errors.New("disk full"))
	m.IncCacheHit("reports")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"gestornet_http_request_duration_seconds",
		`gestornet_store_writes_total{collection="clients",op="put",result="error"} 1`,
		`gestornet_cache_lookups_total{cache="reports",outcome="hit"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncPublish("transaction.recorded", nil)
	m.SetQueueDepth(3)
	m.IncSnapshot(nil)
}
