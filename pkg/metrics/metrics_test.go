package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCounts(t *testing.T) {
	m := NewBookingMetrics(prometheus.NewRegistry())

	m.ObserveTransition("accept", "ok")
	m.ObserveTransition("accept", "ok")
	m.ObserveTransition("accept", "quota_exceeded")
	m.ObserveQuotaDenial("limit_reached")
	m.SetStaleArrivals(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("accept", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("accept", "quota_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quotaDenials.WithLabelValues("limit_reached")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.staleArrivals))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveTransition("accept", "ok")
	m.ObserveQuotaDenial("limit_reached")
	m.ObserveBilledMinutes(30)
	m.SetStaleArrivals(1)
	m.ObserveNotifyFailure("booking.created")
}

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/bookings/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/bookings/{id}", "GET", "404")))
}
