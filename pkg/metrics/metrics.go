package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nurse_booking"

// BookingMetrics counts lifecycle outcomes. A nil *BookingMetrics is a no-op.
type BookingMetrics struct {
	transitions   *prometheus.CounterVec
	quotaDenials  *prometheus.CounterVec
	billedMinutes prometheus.Histogram
	staleArrivals prometheus.Gauge
	notifyFailed  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking lifecycle operations by outcome",
		}, []string{"op", "result"}),
		quotaDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "denials_total",
			Help:      "Accepts refused by admission control",
		}, []string{"reason"}),
		billedMinutes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "billed_minutes",
			Help:      "Billed minutes of completed sessions",
			Buckets:   []float64{15, 30, 45, 60, 90, 120, 180, 240, 480},
		}),
		staleArrivals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "arrival",
			Name:      "stale_unconfirmed",
			Help:      "Arrivals past their confirmation window at the last sweep",
		}),
		notifyFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notifications that failed after a committed transition",
		}, []string{"event"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.quotaDenials, m.billedMinutes, m.staleArrivals, m.notifyFailed)
	return m
}

func (m *BookingMetrics) ObserveTransition(op, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, result).Inc()
}

func (m *BookingMetrics) ObserveQuotaDenial(reason string) {
	if m == nil {
		return
	}
	m.quotaDenials.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveBilledMinutes(minutes int) {
	if m == nil {
		return
	}
	m.billedMinutes.Observe(float64(minutes))
}

func (m *BookingMetrics) SetStaleArrivals(n int) {
	if m == nil {
		return
	}
	m.staleArrivals.Set(float64(n))
}

func (m *BookingMetrics) ObserveNotifyFailure(event string) {
	if m == nil {
		return
	}
	m.notifyFailed.WithLabelValues(event).Inc()
}
