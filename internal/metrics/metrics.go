package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Scoring metrics
	stocksScored    *prometheus.CounterVec
	scoringDuration prometheus.Histogram
	ruleOutcomes    *prometheus.CounterVec
	splitSignals    *prometheus.CounterVec
	edgarRequests   *prometheus.CounterVec
	jobsActive      prometheus.Gauge
	watchlistSize   prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.stocksScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_stocks_scored_total",
			Help: "Total number of stocks scored, by tier",
		},
		[]string{"tier"},
	)
	r.scoringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scorecard_scoring_duration_seconds",
			Help:    "Time to fetch, normalize and score one ticker",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	r.ruleOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_rule_outcomes_total",
			Help: "Rule evaluations by outcome (scored, missing, not_applicable)",
		},
		[]string{"rule", "status"},
	)
	r.splitSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_split_signals_total",
			Help: "Share changes suppressed because of a likely split",
		},
		[]string{"type"},
	)
	r.edgarRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorecard_edgar_requests_total",
			Help: "Requests made to SEC EDGAR",
		},
		[]string{"status"},
	)
	r.jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorecard_jobs_active",
			Help: "Number of batch scoring jobs pending or running",
		},
	)
	r.watchlistSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scorecard_watchlist_tickers",
			Help: "Number of tickers in watchlist",
		},
	)

	reg.MustRegister(r.stocksScored)
	reg.MustRegister(r.scoringDuration)
	reg.MustRegister(r.ruleOutcomes)
	reg.MustRegister(r.splitSignals)
	reg.MustRegister(r.edgarRequests)
	reg.MustRegister(r.jobsActive)
	reg.MustRegister(r.watchlistSize)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordScore records a completed scorecard.
func (r *Registry) RecordScore(tier string, duration float64) {
	r.stocksScored.WithLabelValues(tier).Inc()
	r.scoringDuration.Observe(duration)
}

// RecordRuleOutcome counts one rule evaluation.
func (r *Registry) RecordRuleOutcome(rule, status string) {
	r.ruleOutcomes.WithLabelValues(rule, status).Inc()
}

// RecordSplitSignal counts a suppressed share change; kind is "split" or
// "reverse_split".
func (r *Registry) RecordSplitSignal(kind string) {
	r.splitSignals.WithLabelValues(kind).Inc()
}

// RecordEdgarRequest counts an EDGAR request by HTTP status class, or
// "error" for transport failures.
func (r *Registry) RecordEdgarRequest(status string) {
	r.edgarRequests.WithLabelValues(status).Inc()
}

// SetJobsActive sets the number of active jobs.
func (r *Registry) SetJobsActive(count int) {
	r.jobsActive.Set(float64(count))
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistSize.Set(float64(size))
}

// StatusClass buckets an HTTP status code as "2xx", "4xx" etc.
func StatusClass(status int) string {
	return statusToString(status)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
