package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/hive-simulator/core"
	"github.com/signalsfoundry/hive-simulator/internal/logging"
	"github.com/signalsfoundry/hive-simulator/internal/observability"
	"github.com/signalsfoundry/hive-simulator/kb"
	"github.com/signalsfoundry/hive-simulator/timectrl"
)

// DefaultProgressInterval is how often a running sweep logs progress.
const DefaultProgressInterval = 5 * time.Second

// Harness runs benchmark matrices. Each configuration is an independent
// unit of work; trials within a configuration run sequentially on private
// copies of the map, so no simulation state is shared between goroutines.
type Harness struct {
	lib      *kb.MapLibrary
	clock    timectrl.Clock
	metrics  *observability.BenchCollector
	log      logging.Logger
	mapDir   string
	progress time.Duration

	completed atomic.Int64
}

// Option customises a Harness.
type Option func(*Harness)

// WithMapLibrary shares a map cache across harness runs.
func WithMapLibrary(lib *kb.MapLibrary) Option {
	return func(h *Harness) {
		if lib != nil {
			h.lib = lib
		}
	}
}

// WithClock replaces the wall clock used to time trials.
func WithClock(c timectrl.Clock) Option {
	return func(h *Harness) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithMetrics records trial timings on collector.
func WithMetrics(collector *observability.BenchCollector) Option {
	return func(h *Harness) { h.metrics = collector }
}

// WithLogger attaches a logger.
func WithLogger(log logging.Logger) Option {
	return func(h *Harness) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMapDir resolves relative map paths against dir.
func WithMapDir(dir string) Option {
	return func(h *Harness) { h.mapDir = dir }
}

// WithProgressInterval sets the progress log period; 0 disables it.
func WithProgressInterval(d time.Duration) Option {
	return func(h *Harness) { h.progress = d }
}

// NewHarness constructs a harness reading maps from disk and timing with
// the wall clock unless overridden.
func NewHarness(opts ...Option) *Harness {
	h := &Harness{
		clock:    timectrl.SystemClock{},
		log:      logging.Noop(),
		progress: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.lib == nil {
		h.lib = kb.NewMapLibrary(nil)
	}
	return h
}

// Completed returns the number of trials finished since the harness was
// created.
func (h *Harness) Completed() int64 { return h.completed.Load() }

// Run executes every configuration of m and returns the aggregated results
// sorted by map name and agent count. A configuration that fails (missing
// map, too many agents) is logged and skipped. Cancelling ctx stops new
// configurations and trials from starting; results gathered so far are
// returned alongside ctx.Err().
func (h *Harness) Run(ctx context.Context, m Matrix) ([]Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	configs := m.Configs()
	workers := m.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	totalTrials := len(configs) * m.Runs
	startCompleted := h.completed.Load()

	ctx, span := observability.Tracer().Start(ctx, "benchmark.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("bench.configs", len(configs)),
		attribute.Int("bench.runs", m.Runs),
		attribute.Int("bench.workers", workers),
	)

	h.log.Info(ctx, "benchmark started",
		logging.Int("configs", len(configs)),
		logging.Int("runs", m.Runs),
		logging.Int("workers", workers),
	)

	if h.progress > 0 {
		hb := timectrl.NewHeartbeat(h.progress)
		hb.AddListener(func(time.Time) {
			h.log.Info(ctx, "benchmark progress",
				logging.Int("completed_trials", int(h.completed.Load()-startCompleted)),
				logging.Int("total_trials", totalTrials),
			)
		})
		hb.Start(0)
		defer hb.Stop()
	}

	results := make([]Result, len(configs))
	ok := make([]bool, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cfg := range configs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := h.runConfig(gctx, m, cfg)
			if err != nil {
				h.metrics.IncCaseFailures()
				h.log.Warn(gctx, "benchmark case skipped",
					logging.String("map", cfg.Map),
					logging.Int("agents", cfg.Agents),
					logging.Error(err),
				)
				return nil
			}
			results[i] = r
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Result, 0, len(configs))
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	SortResults(out)

	h.log.Info(ctx, "benchmark finished",
		logging.Int("results", len(out)),
		logging.Int("skipped", len(configs)-len(out)),
	)
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	return out, nil
}

func (h *Harness) runConfig(ctx context.Context, m Matrix, cfg Config) (Result, error) {
	ctx, log := logging.WithRunLogger(ctx, h.log.With(
		logging.String("map", cfg.Map),
		logging.Int("agents", cfg.Agents),
	))
	ctx, span := observability.StartRunSpan(ctx, "benchmark.case", cfg.Map, nil, cfg.Agents, m.effectiveMoveCap())
	defer span.End()

	done := h.metrics.CaseStarted()
	defer done()

	path := h.resolve(cfg.Map)
	if _, err := h.lib.Load(path); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	log.Debug(ctx, "running benchmark case", logging.Int("runs", m.Runs))
	mapName := filepath.Base(cfg.Map)
	durations := make([]time.Duration, 0, m.Runs)
	for t := 0; t < m.Runs; t++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		d, err := h.runTrial(ctx, m, cfg, path, t)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("trial %d: %w", t, err)
		}
		durations = append(durations, d)
		h.metrics.ObserveTrial(mapName, cfg.Agents, d)
		h.completed.Add(1)
	}

	r := NewResult(cfg, durations)
	log.Debug(ctx, "benchmark case done",
		logging.Any("avg_ms", r.AvgMs),
		logging.Any("min_ms", r.MinMs),
		logging.Any("max_ms", r.MaxMs),
	)
	return r, nil
}

// runTrial simulates once on a fresh copy of the map and returns the
// duration of the engine run alone; loading and placement are not timed.
func (h *Harness) runTrial(ctx context.Context, m Matrix, cfg Config, path string, trial int) (time.Duration, error) {
	w, err := h.lib.Fresh(path)
	if err != nil {
		return 0, err
	}
	_, span := observability.StartRunSpan(ctx, "benchmark.trial", cfg.Map, w, cfg.Agents, m.effectiveMoveCap())
	defer span.End()
	span.SetAttributes(observability.AttrTrial.Int(trial))

	var seed uint64
	if m.Seed != 0 {
		seed = m.Seed + uint64(trial)
	}
	rng := core.NewRandomSource(seed)
	agents, err := core.PlaceAgents(w, cfg.Agents, rng)
	if err != nil {
		return 0, err
	}
	engine := core.NewSimulationEngine(w, agents, core.WithRandomSource(rng), core.WithMoveCap(m.MoveCap))

	start := h.clock.Now()
	events := engine.Run()
	elapsed := timectrl.Since(h.clock, start)

	observability.RecordRun(span, engine.Stats(), len(events))
	return elapsed, nil
}

func (m Matrix) effectiveMoveCap() int {
	if m.MoveCap > 0 {
		return m.MoveCap
	}
	return core.DefaultMoveCap
}

func (h *Harness) resolve(path string) string {
	if h.mapDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.mapDir, path)
}
