package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's prometheus registry and collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	otpSent      prometheus.Counter
	otpVerified  *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	sessions     *prometheus.CounterVec
	emailFailure prometheus.Counter
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		otpSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_sent_total",
			Help:      "One-time codes issued.",
		}),
		otpVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "OTP verification outcomes.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-email send limit.",
		}, []string{"flow"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "sessions_issued_total",
			Help:      "Session tokens issued by sign-in method.",
		}, []string{"method"}),
		emailFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "send_failures_total",
			Help:      "Emails that could not be delivered.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.otpSent,
		m.otpVerified,
		m.rateLimited,
		m.sessions,
		m.emailFailure,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) OTPSent() {
	if m == nil {
		return
	}
	m.otpSent.Inc()
}

func (m *Metrics) OTPVerification(result string) {
	if m == nil {
		return
	}
	m.otpVerified.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimited(flow string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(flow).Inc()
}

func (m *Metrics) SessionIssued(method string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(method).Inc()
}

func (m *Metrics) EmailFailed() {
	if m == nil {
		return
	}
	m.emailFailure.Inc()
}
