package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Onboarding metrics
	InterviewsTotal    *prometheus.CounterVec
	InterviewsActive   prometheus.Gauge
	InterviewDuration  prometheus.Histogram
	AttributionsTotal  *prometheus.CounterVec
	ReturningTotal     *prometheus.CounterVec
	RoleChangesTotal   *prometheus.CounterVec
	AnnouncementsTotal *prometheus.CounterVec

	// Text provider metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration prometheus.Histogram
	LLMBreakerState    prometheus.Gauge

	// Dependency failures
	PlatformErrorsTotal    *prometheus.CounterVec
	PersistenceErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered on reg.
// A nil reg registers on the default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "onboard"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Onboarding metrics
		InterviewsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "interview",
				Name:      "sessions_total",
				Help:      "Total number of finished interview sessions",
			},
			[]string{"outcome"}, // completed, timed_out, errored, rejected
		),
		InterviewsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "interview",
				Name:      "sessions_active",
				Help:      "Number of interviews in progress",
			},
		),
		InterviewDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "interview",
				Name:      "duration_seconds",
				Help:      "Interview duration in seconds",
				Buckets:   []float64{15, 30, 60, 120, 300, 600, 900, 1200},
			},
		),
		AttributionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "invite",
				Name:      "attributions_total",
				Help:      "Total number of join attributions by method",
			},
			[]string{"method"}, // exact, fallback, unknown
		),
		ReturningTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "returning_total",
				Help:      "Total number of returning members by detection reason",
			},
			[]string{"reason"},
		),
		RoleChangesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "membership",
				Name:      "role_changes_total",
				Help:      "Total number of role grants and revocations",
			},
			[]string{"role", "action"}, // action: add, remove
		),
		AnnouncementsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "onboarding",
				Name:      "announcements_total",
				Help:      "Total number of posted announcements",
			},
			[]string{"kind"}, // biography, returning
		),

		// Text provider metrics
		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "requests_total",
				Help:      "Total number of text provider requests",
			},
			[]string{"status"}, // success, error, empty, unconfigured
		),
		LLMRequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "request_duration_seconds",
				Help:      "Text provider request duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		LLMBreakerState: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "breaker_open",
				Help:      "Text provider circuit breaker state (1=open, 0=closed or half-open)",
			},
		),

		// Dependency failures
		PlatformErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "platform",
				Name:      "errors_total",
				Help:      "Total number of failed platform calls",
			},
			[]string{"op"},
		),
		PersistenceErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "errors_total",
				Help:      "Total number of failed persistence operations",
			},
			[]string{"store"},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// InterviewStarted increments the active interview gauge.
func (m *Metrics) InterviewStarted() {
	if m == nil {
		return
	}
	m.InterviewsActive.Inc()
}

// InterviewFinished records the outcome of a session.
func (m *Metrics) InterviewFinished(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InterviewsActive.Dec()
	m.InterviewsTotal.WithLabelValues(outcome).Inc()
	m.InterviewDuration.Observe(duration.Seconds())
}

// InterviewRejected records a session that never started.
func (m *Metrics) InterviewRejected() {
	if m == nil {
		return
	}
	m.InterviewsTotal.WithLabelValues("rejected").Inc()
}

// RecordAttribution records how a join was attributed.
func (m *Metrics) RecordAttribution(method string) {
	if m == nil {
		return
	}
	m.AttributionsTotal.WithLabelValues(method).Inc()
}

// RecordReturning records a returning member detection.
func (m *Metrics) RecordReturning(reason string) {
	if m == nil {
		return
	}
	m.ReturningTotal.WithLabelValues(reason).Inc()
}

// RecordRoleChange records a role grant or revocation.
func (m *Metrics) RecordRoleChange(role, action string) {
	if m == nil {
		return
	}
	m.RoleChangesTotal.WithLabelValues(role, action).Inc()
}

// RecordAnnouncement records a posted announcement.
func (m *Metrics) RecordAnnouncement(kind string) {
	if m == nil {
		return
	}
	m.AnnouncementsTotal.WithLabelValues(kind).Inc()
}

// RecordLLMRequest records a text provider request.
func (m *Metrics) RecordLLMRequest(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(status).Inc()
	m.LLMRequestDuration.Observe(duration.Seconds())
}

// SetBreakerOpen sets the text provider breaker gauge.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	value := 0.0
	if open {
		value = 1.0
	}
	m.LLMBreakerState.Set(value)
}

// RecordPlatformError records a failed platform call.
func (m *Metrics) RecordPlatformError(op string) {
	if m == nil {
		return
	}
	m.PlatformErrorsTotal.WithLabelValues(op).Inc()
}

// RecordPersistenceError records a failed store operation.
func (m *Metrics) RecordPersistenceError(store string) {
	if m == nil {
		return
	}
	m.PersistenceErrorsTotal.WithLabelValues(store).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
