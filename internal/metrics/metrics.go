package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Booking outcomes used as the "outcome" label.
const (
	OutcomeCreated     = "created"
	OutcomeConflict    = "conflict"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics exposes counters and gauges for booking, notification and HTTP flows.
// All methods are safe on a nil receiver.
type Metrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal prometheus.Counter
	slotConflicts      prometheus.Counter
	notificationsTotal *prometheus.CounterVec
	notifierRestarts   prometheus.Counter
	connections        prometheus.Gauge
	emailsTotal        *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Appointments cancelled",
		}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "slot_conflicts_total",
			Help:      "Slot reservations lost to a concurrent booking",
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notifier",
			Name:      "notifications_total",
			Help:      "Notifications produced by the change notifier",
		}, []string{"status"}),
		notifierRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notifier",
			Name:      "restarts_total",
			Help:      "Times the change feed watch was restarted after a failure",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Currently registered realtime subscribers",
		}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Outbound emails by template and status",
		}, []string{"template", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.cancellationsTotal,
		m.slotConflicts,
		m.notificationsTotal,
		m.notifierRestarts,
		m.connections,
		m.emailsTotal,
		m.httpLatency,
	)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}

func (m *Metrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *Metrics) ObserveNotification(status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveNotifierRestart() {
	if m == nil {
		return
	}
	m.notifierRestarts.Inc()
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) ObserveEmail(template string, ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.emailsTotal.WithLabelValues(template, status).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
