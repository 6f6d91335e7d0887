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

	// Business metrics
	cyclesTotal      prometheus.Counter
	cyclesSkipped    prometheus.Counter
	cycleDuration    prometheus.Histogram
	tradesTotal      *prometheus.CounterVec
	tradeErrors      *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec
	accountBalance   prometheus.Gauge
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

	// Business metrics
	r.cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantpilot_cycles_total",
			Help: "Total number of trading cycles completed",
		},
	)
	r.cyclesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quantpilot_cycles_skipped_total",
			Help: "Total number of cycle triggers skipped because one was in flight",
		},
	)
	r.cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quantpilot_cycle_duration_seconds",
			Help:    "Trading cycle duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantpilot_trades_total",
			Help: "Total number of trades placed",
		},
		[]string{"strategy", "status"},
	)
	r.tradeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantpilot_trade_errors_total",
			Help: "Total number of failed trade attempts",
		},
		[]string{"strategy"},
	)
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quantpilot_signals_generated_total",
			Help: "Total number of signals generated",
		},
		[]string{"strategy", "action"},
	)
	r.accountBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quantpilot_account_balance",
			Help: "Last observed account equity in USD",
		},
	)

	reg.MustRegister(r.cyclesTotal)
	reg.MustRegister(r.cyclesSkipped)
	reg.MustRegister(r.cycleDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.tradeErrors)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.accountBalance)

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

// RecordCycle records a completed trading cycle.
func (r *Registry) RecordCycle(duration float64) {
	r.cyclesTotal.Inc()
	r.cycleDuration.Observe(duration)
}

// RecordCycleSkipped records a trigger skipped by the in-flight guard.
func (r *Registry) RecordCycleSkipped() {
	r.cyclesSkipped.Inc()
}

// RecordTrade records a placed trade.
func (r *Registry) RecordTrade(strategy, status string) {
	r.tradesTotal.WithLabelValues(strategy, status).Inc()
}

// RecordTradeError records a failed trade attempt.
func (r *Registry) RecordTradeError(strategy string) {
	r.tradeErrors.WithLabelValues(strategy).Inc()
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(strategy, action string) {
	r.signalsGenerated.WithLabelValues(strategy, action).Inc()
}

// SetAccountBalance sets the last observed account equity.
func (r *Registry) SetAccountBalance(balance float64) {
	r.accountBalance.Set(balance)
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
