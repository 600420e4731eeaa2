package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/hive-simulator/internal/bench"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BENCH_MATRIX", "BENCH_WORKERS", "BENCH_RESULTS_DB", "SIM_TRACING_ENABLED", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBenchmarkRunsMatrixAndStoresResults(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "square.txt", "NW east=NE south=SW\nNE west=NW south=SE\nSW north=NW east=SE\nSE north=NE west=SW\n")
	matrix := writeFile(t, dir, "matrix.yaml", `
runs: 2
cases:
  - map: square.txt
    label: Square
    agents: [1, 2]
  - map: absent.txt
    agents: [1]
`)
	db := filepath.Join(dir, "results.db")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{
		"--matrix", matrix,
		"--map-dir", dir,
		"--results-db", db,
		"--workers", "2",
		"--seed", "4",
		"--move-cap", "100",
		"--env-file", filepath.Join(dir, "none.env"),
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"Testing Square", "BENCHMARK RESULTS", "square.txt                1  ", "square.txt                2  "} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "absent.txt                ") {
		t.Fatalf("failing case should be skipped:\n%s", out)
	}

	store, err := bench.OpenSQLiteStore(context.Background(), db)
	if err != nil {
		t.Fatalf("OpenSQLiteStore error: %v", err)
	}
	defer store.Close()
	rows, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(rows) != 2 || rows[0].Runs != 2 || rows[0].Label != "Square" {
		t.Fatalf("unexpected stored rows: %+v", rows)
	}
}

func TestBenchmarkRejectsPositionalArgs(t *testing.T) {
	isolateEnv(t)
	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestBenchmarkInvalidMatrix(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	matrix := writeFile(t, dir, "matrix.yaml", "runs: 1\ncases: []\n")

	cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	cmd.SetArgs([]string{"--matrix", matrix, "--env-file", filepath.Join(dir, "none.env")})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "no cases") {
		t.Fatalf("err = %v, want invalid matrix error", err)
	}
}
