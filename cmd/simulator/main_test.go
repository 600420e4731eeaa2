package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/hive-simulator/core"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MAP_FILE", "SIM_SEED", "SIM_MOVE_CAP", "SIM_TRACING_ENABLED", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func writeMap(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, args...)
	return out, err
}

func executeWithLogs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSimulatorSummaryReportsOutcomesAndSeveredEdges(t *testing.T) {
	isolateEnv(t)
	t.Setenv("LOG_LEVEL", "info")
	// C points at A but A never points back.
	path := writeMap(t, "A east=B\nB west=A\nC east=A\n")

	_, logs, err := executeWithLogs(t, "2", "--map", path, "--seed", "9")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	for _, want := range []string{"one-way connections", "simulation complete", "dead=", "stranded=", "finished=", "stale_edges_severed="} {
		if !strings.Contains(logs, want) {
			t.Fatalf("logs missing %q:\n%s", want, logs)
		}
	}
}

func TestSimulatorIsolatedHivesAreStranded(t *testing.T) {
	isolateEnv(t)
	path := writeMap(t, "A\nB\nC\n")

	out, err := execute(t, "2", "--map", path, "--seed", "3")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "A\nB\nC\n" {
		t.Fatalf("stdout = %q, want the untouched world", out)
	}
}

func TestSimulatorCollisionOnTwoHives(t *testing.T) {
	isolateEnv(t)
	path := writeMap(t, "A east=B\nB west=A\n")

	out, err := execute(t, "2", "--map", path, "--seed", "5")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("stdout = %q, want one event and one surviving hive", out)
	}
	if !strings.Contains(lines[0], " has been destroyed by ant ") || !strings.HasSuffix(lines[0], "!") {
		t.Fatalf("unexpected event line %q", lines[0])
	}
	destroyed := strings.Fields(lines[0])[0]
	if lines[1] == destroyed || (lines[1] != "A" && lines[1] != "B") {
		t.Fatalf("surviving line %q inconsistent with event %q", lines[1], lines[0])
	}
}

func TestSimulatorSeedIsDeterministic(t *testing.T) {
	isolateEnv(t)
	path := writeMap(t, gridMap(5, 5))

	first, err := execute(t, "8", "--map", path, "--seed", "17", "--move-cap", "200")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	second, err := execute(t, "8", "--map", path, "--seed", "17", "--move-cap", "200")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if first != second {
		t.Fatalf("same seed produced different output:\n%s\n---\n%s", first, second)
	}
}

func TestSimulatorUsesMapFileEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MAP_FILE", writeMap(t, "Solo\n"))

	out, err := execute(t, "1")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "Solo\n" {
		t.Fatalf("stdout = %q, want %q", out, "Solo\n")
	}
}

func TestSimulatorDefaultsToBundledMap(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "4", "--seed", "1", "--move-cap", "100")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	// Every event line stands for exactly one hive missing from the world dump.
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 30 {
		t.Fatalf("got %d output lines from the bundled map, want 30:\n%s", len(lines), out)
	}
}

func TestSimulatorRejectsBadAntCounts(t *testing.T) {
	isolateEnv(t)
	cases := map[string]string{
		"abc": "Invalid number of ants: 'abc'",
		"1.5": "Invalid number of ants: '1.5'",
		"0":   "Number of ants must be greater than 0",
	}
	for arg, want := range cases {
		_, err := execute(t, arg)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("arg %q: err = %v, want %q", arg, err, want)
		}
	}
}

func TestSimulatorRequiresExactlyOneArg(t *testing.T) {
	isolateEnv(t)
	if _, err := execute(t); err == nil {
		t.Fatalf("expected error without arguments")
	}
}

func TestSimulatorCapacityError(t *testing.T) {
	isolateEnv(t)
	path := writeMap(t, "A east=B\nB west=A\n")

	_, err := execute(t, "3", "--map", path)
	if !errors.Is(err, core.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want capacity error", err)
	}
	if !strings.Contains(err.Error(), "number of ants (3) exceeds number of available hives (2)") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestSimulatorDuplicateHiveIsFatal(t *testing.T) {
	isolateEnv(t)
	path := writeMap(t, "A\nA\n")

	_, err := execute(t, "1", "--map", path)
	if !errors.Is(err, core.ErrDuplicateNode) {
		t.Fatalf("err = %v, want duplicate node error", err)
	}
}

func TestSimulatorRejectsZeroMoveCap(t *testing.T) {
	isolateEnv(t)
	if _, err := execute(t, "1", "--move-cap", "0"); err == nil {
		t.Fatalf("expected error for --move-cap 0")
	}
}

func gridMap(w, h int) string {
	name := func(x, y int) string { return fmt.Sprintf("N%d_%d", x, y) }
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.WriteString(name(x, y))
			if y > 0 {
				b.WriteString(" north=" + name(x, y-1))
			}
			if x > 0 {
				b.WriteString(" west=" + name(x-1, y))
			}
			if y < h-1 {
				b.WriteString(" south=" + name(x, y+1))
			}
			if x < w-1 {
				b.WriteString(" east=" + name(x+1, y))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
