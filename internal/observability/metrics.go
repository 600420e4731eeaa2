package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/hive-simulator/core"
)

// Agent outcome label values for sim_agent_outcomes_total.
const (
	OutcomeDead     = "dead"
	OutcomeStranded = "stranded"
	OutcomeFinished = "finished"
)

// SimulationCollector bundles Prometheus metrics describing completed
// simulation runs.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Runs           prometheus.Counter
	Steps          prometheus.Counter
	Moves          prometheus.Counter
	NodesDestroyed prometheus.Counter
	AgentOutcomes  *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	SurvivingNodes prometheus.Gauge
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Total number of completed simulation runs.",
	}), "sim_runs_total")
	if err != nil {
		return nil, err
	}
	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_steps_total",
		Help: "Total number of step-loop iterations across runs.",
	}), "sim_steps_total")
	if err != nil {
		return nil, err
	}
	moves, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_moves_total",
		Help: "Total number of successful agent relocations across runs.",
	}), "sim_moves_total")
	if err != nil {
		return nil, err
	}
	destroyed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_nodes_destroyed_total",
		Help: "Total number of nodes destroyed by collisions.",
	}), "sim_nodes_destroyed_total")
	if err != nil {
		return nil, err
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_agent_outcomes_total",
		Help: "Agents leaving the active population, labeled by outcome (dead, stranded, finished).",
	}, []string{"outcome"})
	outcomes, err = registerCounterVec(reg, outcomes, "sim_agent_outcomes_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_run_duration_seconds",
		Help:    "Wall-clock duration of the step loop of a single run.",
		Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}), "sim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	surviving, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_surviving_nodes",
		Help: "Live nodes left in the world after the most recent run.",
	}), "sim_surviving_nodes")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:       gatherer,
		Runs:           runs,
		Steps:          steps,
		Moves:          moves,
		NodesDestroyed: destroyed,
		AgentOutcomes:  outcomes,
		RunDuration:    duration,
		SurvivingNodes: surviving,
	}, nil
}

// ObserveRun records the outcome of one finished run.
func (c *SimulationCollector) ObserveRun(stats core.RunStats, elapsed time.Duration, survivingNodes int) {
	if c == nil {
		return
	}
	c.Runs.Inc()
	c.Steps.Add(float64(stats.Steps))
	c.Moves.Add(float64(stats.Moves))
	c.NodesDestroyed.Add(float64(stats.Collisions))
	c.AgentOutcomes.WithLabelValues(OutcomeDead).Add(float64(stats.Dead))
	c.AgentOutcomes.WithLabelValues(OutcomeStranded).Add(float64(stats.Stranded))
	c.AgentOutcomes.WithLabelValues(OutcomeFinished).Add(float64(stats.CapFinished))
	c.RunDuration.Observe(elapsed.Seconds())
	c.SurvivingNodes.Set(float64(survivingNodes))
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	return HandlerFor(c.Gatherer())
}

// HandlerFor wraps a gatherer in a /metrics handler, falling back to the
// default gatherer when nil.
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
