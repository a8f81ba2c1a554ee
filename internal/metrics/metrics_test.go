package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Middleware(mux)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "GET /things/{id}", "418"))

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/things/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("expected 418, got %d", rec.Code)
		}
	}

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "GET /things/{id}", "418"))
	if after-before != 2 {
		t.Errorf("expected 2 requests counted under the route pattern, got %v", after-before)
	}
}

func TestMiddlewareUnmatched(t *testing.T) {
	h := Middleware(http.NewServeMux())

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	if after-before != 1 {
		t.Errorf("expected unmatched request to be counted, got %v", after-before)
	}
}
