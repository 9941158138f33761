package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestAPI_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewAPI(reg)
	require.NoError(t, err)

	m.Observe("GET", "/student/submissions/", 200, 20*time.Millisecond)
	m.Observe("GET", "/student/submissions/", 200, 30*time.Millisecond)
	m.Observe("PATCH", "/teacher/submissions/{id}/", 409, time.Millisecond)
	m.TransportError("POST", "/ai/chat/")

	require.Equal(t, 2.0, counterValue(t, m.requests.WithLabelValues("GET", "/student/submissions/", "200")))
	require.Equal(t, 1.0, counterValue(t, m.requests.WithLabelValues("PATCH", "/teacher/submissions/{id}/", "409")))
	require.Equal(t, 1.0, counterValue(t, m.failures.WithLabelValues("POST", "/ai/chat/")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	return out.GetCounter().GetValue()
}

func TestAPI_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewAPI(reg)
	require.NoError(t, err)

	_, err = NewAPI(reg)
	require.Error(t, err)
}

func TestAPI_NilIsNoop(t *testing.T) {
	var m *API
	m.Observe("GET", "/x", 200, time.Second)
	m.TransportError("GET", "/x")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewAPI(reg)
	require.NoError(t, err)
	m.Observe("GET", "/analytics/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `aipms_api_requests_total{endpoint="/analytics/",method="GET",status="200"} 1`), body)
}
