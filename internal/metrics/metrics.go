package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the portfolio API. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Contact form
	ContactSubmissionsTotal *prometheus.CounterVec
	EmailSendDurationSecs   prometheus.Histogram
	RateLimitErrorsTotal    prometheus.Counter
	ArchiveErrorsTotal      prometheus.Counter

	// Chat proxy
	ChatRequestsTotal      *prometheus.CounterVec
	ChatDurationSecs       prometheus.Histogram
	ModelListRequestsTotal *prometheus.CounterVec

	// Owner alerts
	AlertsTotal        *prometheus.CounterVec
	AlertsDroppedTotal prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		ContactSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_contact_submissions_total",
			Help: "Contact submissions by outcome",
		}, []string{"outcome"}),
		EmailSendDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_contact_email_send_duration_seconds",
			Help:    "Duration of outbound contact email delivery in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RateLimitErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_contact_ratelimit_store_errors_total",
			Help: "Total number of rate limit store failures",
		}),
		ArchiveErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_contact_archive_errors_total",
			Help: "Total number of failed contact archive writes",
		}),

		ChatRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_chat_requests_total",
			Help: "Chat proxy requests by outcome",
		}, []string{"outcome"}),
		ChatDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_chat_generate_duration_seconds",
			Help:    "Duration of upstream generation calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		ModelListRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_chat_model_list_requests_total",
			Help: "Model listing requests by outcome",
		}, []string{"outcome"}),

		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_alerts_total",
			Help: "Owner alerts delivered by notifier and outcome",
		}, []string{"notifier", "outcome"}),
		AlertsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_alerts_dropped_total",
			Help: "Owner alerts dropped because the queue was full",
		}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ContactSubmissionsTotal,
		m.EmailSendDurationSecs,
		m.RateLimitErrorsTotal,
		m.ArchiveErrorsTotal,
		m.ChatRequestsTotal,
		m.ChatDurationSecs,
		m.ModelListRequestsTotal,
		m.AlertsTotal,
		m.AlertsDroppedTotal,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordContact counts a contact submission outcome ("ok" or a rejection reason).
func (m *Metrics) RecordContact(outcome string) {
	if m == nil {
		return
	}
	m.ContactSubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEmailSend(duration time.Duration) {
	if m == nil {
		return
	}
	m.EmailSendDurationSecs.Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitError() {
	if m == nil {
		return
	}
	m.RateLimitErrorsTotal.Inc()
}

func (m *Metrics) RecordArchiveError() {
	if m == nil {
		return
	}
	m.ArchiveErrorsTotal.Inc()
}

func (m *Metrics) RecordChat(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.ChatDurationSecs.Observe(duration.Seconds())
	}
}

func (m *Metrics) RecordModelList(outcome string) {
	if m == nil {
		return
	}
	m.ModelListRequestsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAlert(notifier string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AlertsTotal.WithLabelValues(notifier, outcome).Inc()
}

func (m *Metrics) RecordAlertDropped() {
	if m == nil {
		return
	}
	m.AlertsDroppedTotal.Inc()
}
