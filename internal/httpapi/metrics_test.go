package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsMiddleware_LabelsByRoutePattern checks requests are counted
// under the chi pattern, not the raw path carrying ids.
func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := MetricsMiddleware(r)

	counter := httpRequestsTotal.WithLabelValues("/api/chats/{id}", http.MethodDelete, "204")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/chats/"+id, nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 requests under the pattern label, got %v", got)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte("lmrelay_http_requests_total")) {
		preview := body
		if len(preview) > 400 {
			preview = preview[:400]
		}
		t.Fatalf("expected lmrelay_http_requests_total in metrics; got: %q", string(preview))
	}
	if bytes.Contains(body, []byte(`path="/api/chats/a"`)) {
		t.Fatalf("raw path leaked into labels")
	}
}

// TestMetricsMiddleware_KeepsFlusher guards event streaming behind the middleware.
func TestMetricsMiddleware_KeepsFlusher(t *testing.T) {
	var flushable bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		w.Write([]byte("data: x\n\n"))
		if ok {
			f.Flush()
		}
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	if !flushable {
		t.Fatalf("wrapped writer lost http.Flusher")
	}
	if !rr.Flushed {
		t.Fatalf("flush did not reach the underlying writer")
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("implicit status should be 200, got %d", rr.Code)
	}
}

func TestIncrementChatRejected(t *testing.T) {
	c := chatRejectedTotal.WithLabelValues("unspecified")
	before := testutil.ToFloat64(c)
	IncrementChatRejected("")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Fatalf("expected empty reason to count as unspecified, delta=%v", got)
	}
}
