package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Step results recorded on StepDuration.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds the WalletSentinel collectors on a private Prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	StepDuration  *prometheus.HistogramVec
	OverrideFired *prometheus.CounterVec
	Analyses      *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	BreakerState  *prometheus.GaugeVec
	EvalComposite prometheus.Gauge
}

// New builds and registers every collector.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletsentinel_step_duration_seconds",
				Help:    "Duration of each analysis step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"step", "result"},
		),
		OverrideFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletsentinel_override_fired_total",
				Help: "Override rule firings by rule name",
			},
			[]string{"rule"},
		),
		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletsentinel_analyses_total",
				Help: "Wallet analyses by final status",
			},
			[]string{"status"},
		),
		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletsentinel_fetch_errors_total",
				Help: "Data source fetch errors by endpoint",
			},
			[]string{"endpoint"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walletsentinel_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		EvalComposite: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "walletsentinel_eval_mean_composite",
				Help: "Mean composite score of the latest evaluation run",
			},
		),
	}
	r.reg.MustRegister(
		r.StepDuration,
		r.OverrideFired,
		r.Analyses,
		r.FetchErrors,
		r.BreakerState,
		r.EvalComposite,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStep records how long a step took.
func (r *Registry) ObserveStep(step string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.StepDuration.WithLabelValues(step, result).Observe(time.Since(started).Seconds())
}

func (r *Registry) RuleFired(rule string) {
	if r == nil {
		return
	}
	r.OverrideFired.WithLabelValues(rule).Inc()
}

func (r *Registry) AnalysisDone(status string) {
	if r == nil {
		return
	}
	r.Analyses.WithLabelValues(status).Inc()
}

func (r *Registry) FetchError(endpoint string) {
	if r == nil {
		return
	}
	r.FetchErrors.WithLabelValues(endpoint).Inc()
}

// SetBreakerState records a breaker transition using gobreaker's state ordering.
func (r *Registry) SetBreakerState(name string, state int) {
	if r == nil {
		return
	}
	r.BreakerState.WithLabelValues(name).Set(float64(state))
}

func (r *Registry) SetEvalComposite(v float64) {
	if r == nil {
		return
	}
	r.EvalComposite.Set(v)
}

// Gatherer exposes the private registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
