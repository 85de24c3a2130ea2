package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
// A nil *Registry is valid and records nothing.
type Registry struct {
	*prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	tradesRecorded *prometheus.CounterVec
	tradesRejected prometheus.Counter
	tradesDeleted  prometheus.Counter
	ruleBreaches   *prometheus.CounterVec
	reportsBuilt   *prometheus.CounterVec
	reportDuration prometheus.Histogram
	coachRequests  *prometheus.CounterVec
	coachDuration  *prometheus.HistogramVec
	jobsActive     *prometheus.GaugeVec
	profileVersion prometheus.Gauge
	streamClients  prometheus.Gauge
	alertsSent     *prometheus.CounterVec
}

const namespace = "zella"

// NewRegistry creates a registry with the Go runtime, process, HTTP and
// journal collectors registered.
func NewRegistry() *Registry {
	r := &Registry{Registry: prometheus.NewRegistry()}

	r.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	r.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	r.httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Number of HTTP requests currently in flight",
	})

	r.tradesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_recorded_total",
		Help:      "Trades journaled, by win/loss/breakeven status",
	}, []string{"status"})
	r.tradesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_rejected_total",
		Help:      "Trade entries rejected at the input boundary",
	})
	r.tradesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_deleted_total",
		Help:      "Trades removed from journals",
	})
	r.ruleBreaches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_rule_breaches_total",
		Help:      "Trades journaled in breach of account rules",
	}, []string{"account"})
	r.reportsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_built_total",
		Help:      "Analytics reports built, by window",
	}, []string{"window"})
	r.reportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Time spent folding a journal into a report",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
	r.coachRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coach_requests_total",
		Help:      "Coach requests, by kind and outcome",
	}, []string{"kind", "status"})
	r.coachDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "coach_duration_seconds",
		Help:      "Round trip of a coach request to the LLM provider",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"kind"})
	r.jobsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_active",
		Help:      "Coach jobs pending or running, by kind",
	}, []string{"type"})
	r.profileVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_profile_version",
		Help:      "Version of the active session profile",
	})
	r.streamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Connected change-stream websocket clients",
	})
	r.alertsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_sent_total",
		Help:      "Discipline alerts delivered, by rule and notifier outcome",
	}, []string{"rule", "status"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequestsTotal, r.httpRequestDuration, r.httpRequestsInFlight,
		r.tradesRecorded, r.tradesRejected, r.tradesDeleted, r.ruleBreaches,
		r.reportsBuilt, r.reportDuration,
		r.coachRequests, r.coachDuration, r.jobsActive,
		r.profileVersion, r.streamClients, r.alertsSent,
	)
	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	if r == nil {
		return
	}
	r.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	if r == nil {
		return
	}
	r.httpRequestsInFlight.Dec()
}

// RecordTrade records a journaled trade by outcome.
func (r *Registry) RecordTrade(status string) {
	if r == nil {
		return
	}
	r.tradesRecorded.WithLabelValues(status).Inc()
}

// RecordRejected records a trade entry that failed validation.
func (r *Registry) RecordRejected() {
	if r == nil {
		return
	}
	r.tradesRejected.Inc()
}

// RecordDeleted records a trade deletion.
func (r *Registry) RecordDeleted() {
	if r == nil {
		return
	}
	r.tradesDeleted.Inc()
}

// RecordRuleBreach records a trade taken in breach of account rules.
func (r *Registry) RecordRuleBreach(account string) {
	if r == nil {
		return
	}
	r.ruleBreaches.WithLabelValues(account).Inc()
}

// RecordReport records an analytics report build.
func (r *Registry) RecordReport(window string, duration float64) {
	if r == nil {
		return
	}
	r.reportsBuilt.WithLabelValues(window).Inc()
	r.reportDuration.Observe(duration)
}

// RecordCoach records a finished coach request.
func (r *Registry) RecordCoach(kind, status string, duration float64) {
	if r == nil {
		return
	}
	r.coachRequests.WithLabelValues(kind, status).Inc()
	r.coachDuration.WithLabelValues(kind).Observe(duration)
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	if r == nil {
		return
	}
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

// SetProfileVersion sets the active session profile version.
func (r *Registry) SetProfileVersion(version uint64) {
	if r == nil {
		return
	}
	r.profileVersion.Set(float64(version))
}

// SetStreamClients sets the number of connected stream clients.
func (r *Registry) SetStreamClients(n int) {
	if r == nil {
		return
	}
	r.streamClients.Set(float64(n))
}

// RecordAlert records one alert delivery attempt.
func (r *Registry) RecordAlert(rule, status string) {
	if r == nil {
		return
	}
	r.alertsSent.WithLabelValues(rule, status).Inc()
}

// statusClass collapses a status code into its class label, e.g. 404 -> "4xx".
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "5xx"
	}
	return strconv.Itoa(status/100) + "xx"
}
