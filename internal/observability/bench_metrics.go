package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BenchCollector exposes benchmark-harness metrics.
type BenchCollector struct {
	gatherer prometheus.Gatherer

	Trials        *prometheus.CounterVec
	TrialDuration *prometheus.HistogramVec
	CasesInFlight prometheus.Gauge
	CaseFailures  prometheus.Counter
}

// NewBenchCollector registers benchmark metrics against the provided registerer.
func NewBenchCollector(reg prometheus.Registerer) (*BenchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	trials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_trials_total",
		Help: "Completed benchmark trials, labeled by map and agent count.",
	}, []string{"map", "agents"})
	trials, err := registerCounterVec(reg, trials, "bench_trials_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bench_trial_duration_seconds",
		Help:    "Duration of the timed simulation portion of a benchmark trial.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"map"})
	durations, err = registerHistogramVec(reg, durations, "bench_trial_duration_seconds")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bench_cases_in_flight",
		Help: "Number of (map, agents) cases currently being executed.",
	}), "bench_cases_in_flight")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bench_case_failures_total",
		Help: "Benchmark cases skipped because loading or placement failed.",
	}), "bench_case_failures_total")
	if err != nil {
		return nil, err
	}

	return &BenchCollector{
		gatherer:      gatherer,
		Trials:        trials,
		TrialDuration: durations,
		CasesInFlight: inFlight,
		CaseFailures:  failures,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *BenchCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTrial records one timed trial.
func (c *BenchCollector) ObserveTrial(mapName string, agents int, d time.Duration) {
	if c == nil {
		return
	}
	c.Trials.WithLabelValues(mapName, strconv.Itoa(agents)).Inc()
	c.TrialDuration.WithLabelValues(mapName).Observe(d.Seconds())
}

// CaseStarted increments the in-flight gauge; the returned func undoes it.
func (c *BenchCollector) CaseStarted() (done func()) {
	if c == nil {
		return func() {}
	}
	c.CasesInFlight.Inc()
	return c.CasesInFlight.Dec
}

// IncCaseFailures counts a skipped case.
func (c *BenchCollector) IncCaseFailures() {
	if c == nil {
		return
	}
	c.CaseFailures.Inc()
}
