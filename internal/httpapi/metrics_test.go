package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	h := NewMux(&mockService{text: "x"}, Options{})
	counter := httpRequestsTotal.WithLabelValues("/ancestor", http.MethodGet, "200")
	before := testutil.ToFloat64(counter)
	serve(h, http.MethodGet, "/ancestor?q=hi", "")
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("requests_total delta=%v", got)
	}

	bad := httpRequestsTotal.WithLabelValues("/ancestor", http.MethodPost, "415")
	before = testutil.ToFloat64(bad)
	req := httptest.NewRequest(http.MethodPost, "/ancestor", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got := testutil.ToFloat64(bad) - before; got != 1 {
		t.Fatalf("415 delta=%v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&mockService{snaps: []string{"ab"}}, Options{})
	serve(h, http.MethodPost, "/ancestor/stream", askBody)
	rec := serve(h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rec.Code)
	}
	for _, name := range []string{"ancestor_http_requests_total", "ancestor_http_stream_bytes_total"} {
		if !bytes.Contains(rec.Body.Bytes(), []byte(name)) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func TestIncrementBackpressure_DefaultsReason(t *testing.T) {
	before := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified"))
	IncrementBackpressure("")
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified")) - before; got != 1 {
		t.Fatalf("delta=%v", got)
	}
}
