package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/hive-simulator/core"
	"github.com/signalsfoundry/hive-simulator/internal/config"
	"github.com/signalsfoundry/hive-simulator/internal/logging"
	"github.com/signalsfoundry/hive-simulator/internal/observability"
	"github.com/signalsfoundry/hive-simulator/maps"
	"github.com/signalsfoundry/hive-simulator/timectrl"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "simulator <number_of_ants>",
		Short: "Release ants on a hive map and report which hives they destroy",
		Long: `simulator places the requested number of ants on distinct hives of a map and
lets them walk at random. Two ants meeting in a hive destroy it and
themselves. Destruction events are printed in order, followed by what is left
of the world in the map file format.

The map is taken from --map, then MAP_FILE, then the bundled small map.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			numAnts, err := parseAntCount(args[0])
			if err != nil {
				return err
			}

			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.SimulatorFromEnv()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}
			cfg.Logging.Output = stderr
			cfg.Tracing.Command = "simulator"
			cfg.Tracing.Output = stderr

			return run(cmd.Context(), cfg, numAnts, stdout)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().String("map", "", "Path to the map file (overrides MAP_FILE)")
	cmd.Flags().Uint64("seed", 0, "Random seed; 0 picks one from the clock (overrides SIM_SEED)")
	cmd.Flags().Int("move-cap", core.DefaultMoveCap, "Moves after which an ant is finished (overrides SIM_MOVE_CAP)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus /metrics on this address after the run until interrupted")
	cmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Optional .env file to load before reading the environment")
	return cmd
}

func parseAntCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("Invalid number of ants: '%s'. Please provide a valid positive integer.", raw)
	}
	if n == 0 {
		return 0, errors.New("Number of ants must be greater than 0")
	}
	return n, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Simulator) error {
	flags := cmd.Flags()
	if flags.Changed("map") {
		cfg.MapFile, _ = flags.GetString("map")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("move-cap") {
		moveCap, _ := flags.GetInt("move-cap")
		if moveCap <= 0 {
			return fmt.Errorf("invalid --move-cap %d: must be greater than 0", moveCap)
		}
		cfg.MoveCap = moveCap
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	return nil
}

func run(ctx context.Context, cfg config.Simulator, numAnts int, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, log := logging.WithRunLogger(ctx, logging.New(cfg.Logging))

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewSimulationCollector(reg)
	if err != nil {
		return err
	}

	sim := &simulation{log: log, clock: timectrl.SystemClock{}, metrics: collector}
	if err := sim.run(ctx, cfg, numAnts, stdout); err != nil {
		return err
	}

	if srv := observability.ServeMetrics(cfg.MetricsAddr, reg, log); srv != nil {
		stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		<-stopCtx.Done()
		log.Info(ctx, "shutting down metrics server")
		return observability.ShutdownServer(context.Background(), srv)
	}
	return nil
}

// simulation performs one load/place/run/print cycle.
type simulation struct {
	log     logging.Logger
	clock   timectrl.Clock
	metrics *observability.SimulationCollector
}

func (s *simulation) run(ctx context.Context, cfg config.Simulator, numAnts int, stdout io.Writer) error {
	w, source, err := loadWorld(cfg.MapFile)
	if err != nil {
		return err
	}
	s.log.Info(ctx, "map loaded",
		logging.String("map", source),
		logging.Int("nodes", w.Len()),
	)
	if asym := core.CheckSymmetry(w); len(asym) > 0 {
		first := asym[0]
		s.log.Warn(ctx, "map has one-way connections; destroyed hives may leave stale edges",
			logging.Int("count", len(asym)),
			logging.String("example", fmt.Sprintf("%s %s=%s", w.Name(first.From), first.Direction, w.Name(first.To))),
		)
	}

	rng := core.NewRandomSource(cfg.Seed)
	agents, err := core.PlaceAgents(w, numAnts, rng)
	if err != nil {
		return err
	}

	ctx, span := observability.StartRunSpan(ctx, "simulate", source, w, numAnts, cfg.MoveCap)
	defer span.End()
	span.SetAttributes(observability.AttrSeed.Int64(int64(cfg.Seed)))

	engine := core.NewSimulationEngine(w, agents,
		core.WithRandomSource(rng),
		core.WithMoveCap(cfg.MoveCap),
		core.WithLogger(s.log),
	)
	start := s.clock.Now()
	events := engine.Run()
	elapsed := timectrl.Since(s.clock, start)
	stats := engine.Stats()

	observability.RecordRun(span, stats, len(events))

	out := bufio.NewWriter(stdout)
	if err := core.WriteEvents(out, w, events); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	if err := core.WriteWorld(out, w); err != nil {
		return fmt.Errorf("failed to write world: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	surviving := w.LiveNodes()
	s.metrics.ObserveRun(stats, elapsed, surviving)

	summary := core.Summarize(w)
	s.log.Info(ctx, "simulation complete",
		logging.Int("agents", numAnts),
		logging.Int("destroyed", len(events)),
		logging.Int("dead", stats.Dead),
		logging.Int("stranded", stats.Stranded),
		logging.Int("finished", stats.CapFinished),
		logging.Int("stale_edges_severed", stats.StaleEdges),
		logging.Int("steps", stats.Steps),
		logging.Int("surviving_nodes", surviving),
		logging.Int("components", summary.Components),
		logging.Int("largest_component", summary.LargestComponent),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func loadWorld(path string) (*core.World, string, error) {
	if path == "" {
		w, err := maps.LoadSmall()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load bundled map: %w", err)
		}
		return w, maps.SmallName, nil
	}
	w, err := core.LoadWorldFile(path)
	if err != nil {
		return nil, "", err
	}
	return w, path, nil
}
