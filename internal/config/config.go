// Package config assembles binary configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/hive-simulator/core"
	"github.com/signalsfoundry/hive-simulator/internal/logging"
	"github.com/signalsfoundry/hive-simulator/internal/observability"
)

// DefaultEnvFile is read by LoadDotEnv when no path is given.
const DefaultEnvFile = ".env"

// Simulator configures cmd/simulator.
type Simulator struct {
	// MapFile is the map to load; empty selects the embedded small map.
	MapFile string
	// Seed drives placement and walks; 0 picks a time-based seed.
	Seed    uint64
	MoveCap int

	MetricsAddr string
	Logging     logging.Config
	Tracing     observability.TracingConfig
}

// Benchmark configures cmd/benchmark.
type Benchmark struct {
	MatrixFile  string
	Workers     int
	ResultsDB   string
	MetricsAddr string
	Logging     logging.Config
	Tracing     observability.TracingConfig
}

// LoadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

// SimulatorFromEnv reads the simulator configuration from the environment.
func SimulatorFromEnv() (Simulator, error) {
	cfg := Simulator{
		MapFile:     strings.TrimSpace(os.Getenv("MAP_FILE")),
		MoveCap:     core.DefaultMoveCap,
		MetricsAddr: os.Getenv("SIM_METRICS_ADDR"),
		Logging:     logging.ConfigFromEnv(),
		Tracing:     observability.TracingConfigFromEnv(),
	}

	seed, err := uintFromEnv("SIM_SEED", 0)
	if err != nil {
		return Simulator{}, err
	}
	cfg.Seed = seed

	moveCap, err := positiveIntFromEnv("SIM_MOVE_CAP", core.DefaultMoveCap)
	if err != nil {
		return Simulator{}, err
	}
	cfg.MoveCap = moveCap

	return cfg, nil
}

// BenchmarkFromEnv reads the benchmark configuration from the environment.
// Workers is 0 when unset, letting the harness pick its default.
func BenchmarkFromEnv() (Benchmark, error) {
	cfg := Benchmark{
		MatrixFile:  strings.TrimSpace(os.Getenv("BENCH_MATRIX")),
		ResultsDB:   strings.TrimSpace(os.Getenv("BENCH_RESULTS_DB")),
		MetricsAddr: os.Getenv("BENCH_METRICS_ADDR"),
		Logging:     logging.ConfigFromEnv(),
		Tracing:     observability.TracingConfigFromEnv(),
	}

	workers, err := positiveIntFromEnv("BENCH_WORKERS", 0)
	if err != nil {
		return Benchmark{}, err
	}
	cfg.Workers = workers

	return cfg, nil
}

func uintFromEnv(key string, def uint64) (uint64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func positiveIntFromEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be greater than 0", key, raw)
	}
	return v, nil
}
