package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/hive-simulator/internal/bench"
	"github.com/signalsfoundry/hive-simulator/internal/config"
	"github.com/signalsfoundry/hive-simulator/internal/logging"
	"github.com/signalsfoundry/hive-simulator/internal/observability"
	"github.com/signalsfoundry/hive-simulator/kb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type options struct {
	envFile string
	mapDir  string
	seed    uint64
	moveCap int
	runs    int
	cfg     config.Benchmark
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Time the simulation over a matrix of maps and ant counts",
		Long: `benchmark runs every (map, ant count) pair of a matrix several times, in
parallel across pairs, and prints the average, minimum and maximum duration of
the simulation itself. Without --matrix the stock sweep over
hiveum_map_large.txt and hiveum_map_very_large.txt is used.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFile); err != nil {
				return err
			}
			cfg, err := config.BenchmarkFromEnv()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("matrix") {
				cfg.MatrixFile, _ = flags.GetString("matrix")
			}
			if flags.Changed("workers") {
				cfg.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("results-db") {
				cfg.ResultsDB, _ = flags.GetString("results-db")
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
			}
			cfg.Logging.Output = stderr
			cfg.Tracing.Command = "benchmark"
			cfg.Tracing.Output = stderr
			opts.cfg = cfg

			return run(cmd.Context(), opts, stdout)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	flags := cmd.Flags()
	flags.String("matrix", "", "YAML benchmark matrix (overrides BENCH_MATRIX)")
	flags.Int("workers", 0, "Configurations run concurrently; 0 uses GOMAXPROCS (overrides BENCH_WORKERS)")
	flags.String("results-db", "", "Append results to this SQLite database (overrides BENCH_RESULTS_DB)")
	flags.String("metrics-addr", "", "Serve Prometheus /metrics on this address while running")
	flags.StringVar(&opts.mapDir, "map-dir", "", "Directory relative map paths are resolved against")
	flags.Uint64Var(&opts.seed, "seed", 0, "Fix placement and walks; trial t uses seed+t")
	flags.IntVar(&opts.moveCap, "move-cap", 0, "Override the per-ant move cap")
	flags.IntVar(&opts.runs, "runs", 0, "Override the number of trials per configuration")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Optional .env file to load before reading the environment")
	return cmd
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.cfg
	log := logging.New(cfg.Logging)

	matrix, err := loadMatrix(cfg.MatrixFile)
	if err != nil {
		return err
	}
	if cfg.Workers > 0 {
		matrix.Workers = cfg.Workers
	}
	if opts.seed != 0 {
		matrix.Seed = opts.seed
	}
	if opts.moveCap > 0 {
		matrix.MoveCap = opts.moveCap
	}
	if opts.runs > 0 {
		matrix.Runs = opts.runs
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewBenchCollector(reg)
	if err != nil {
		return err
	}
	if srv := observability.ServeMetrics(cfg.MetricsAddr, reg, log); srv != nil {
		defer observability.ShutdownServer(context.Background(), srv)
	}

	lib := kb.NewMapLibrary(nil)
	lib.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventMapLoaded {
			log.Info(ctx, "map cached", logging.String("path", ev.Path), logging.Int("nodes", ev.Nodes))
		}
	})

	fmt.Fprintln(stdout, "🐜 Ant Mania Benchmark Suite 🐜")
	fmt.Fprintln(stdout, "================================")
	for _, c := range matrix.Cases {
		label := c.Label
		if label == "" {
			label = c.Map
		}
		fmt.Fprintf(stdout, "\n🗺️  Testing %s 🗺️\n", label)
		fmt.Fprintln(stdout, strings.Repeat("─", 50))
		fmt.Fprintf(stdout, "%d ant counts x %d runs\n", len(c.Agents), matrix.Runs)
	}

	h := bench.NewHarness(
		bench.WithMapLibrary(lib),
		bench.WithMetrics(collector),
		bench.WithLogger(log),
		bench.WithMapDir(opts.mapDir),
	)
	startedAt := time.Now()
	results, runErr := h.Run(ctx, matrix)
	if err := bench.RenderTable(stdout, results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if cfg.ResultsDB != "" && len(results) > 0 {
		// Results of an interrupted sweep are still worth keeping.
		store, err := bench.OpenSQLiteStore(context.Background(), cfg.ResultsDB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(context.Background(), startedAt, results); err != nil {
			return err
		}
		log.Info(ctx, "results stored", logging.String("db", cfg.ResultsDB), logging.Int("rows", len(results)))
	}
	return runErr
}

func loadMatrix(path string) (bench.Matrix, error) {
	if path == "" {
		return bench.DefaultMatrix(), nil
	}
	return bench.LoadMatrix(path)
}
