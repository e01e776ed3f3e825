package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareRecordsImplicitOKWithoutChangingResponse(t *testing.T) {
	m := NewHTTPServerMetrics("forensic-api", nil)
	handler := m.Middleware("forensic-api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"idle"}`))
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	if res.Code != http.StatusOK || res.Body.String() != `{"state":"idle"}` {
		t.Fatalf("unexpected response %d %q", res.Code, res.Body.String())
	}

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `forensic_http_requests_total{method="GET",path="/v1/session",service="forensic-api",status="200"} 1`
	if !strings.Contains(scrape.Body.String(), want) {
		t.Fatalf("expected %s in:\n%s", want, scrape.Body.String())
	}
}
