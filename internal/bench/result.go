package bench

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Result aggregates the trial timings of one configuration.
type Result struct {
	// MapName is the base name of the map file.
	MapName string
	Label   string
	Agents  int
	Runs    int
	AvgMs   float64
	MinMs   float64
	MaxMs   float64
}

// NewResult computes min/avg/max over the trial durations of cfg.
func NewResult(cfg Config, durations []time.Duration) Result {
	r := Result{
		MapName: filepath.Base(cfg.Map),
		Label:   cfg.Label,
		Agents:  cfg.Agents,
		Runs:    len(durations),
	}
	if len(durations) == 0 {
		return r
	}

	r.MinMs = math.Inf(1)
	r.MaxMs = math.Inf(-1)
	var sum float64
	for _, d := range durations {
		ms := float64(d) / float64(time.Millisecond)
		sum += ms
		r.MinMs = math.Min(r.MinMs, ms)
		r.MaxMs = math.Max(r.MaxMs, ms)
	}
	r.AvgMs = sum / float64(len(durations))
	return r
}

// SortResults orders results by map name, then agent count.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].MapName != results[j].MapName {
			return results[i].MapName < results[j].MapName
		}
		return results[i].Agents < results[j].Agents
	})
}

// RenderTable writes results as a fixed-width timing table.
func RenderTable(w io.Writer, results []Result) error {
	var b strings.Builder
	b.WriteString("\n📊 BENCHMARK RESULTS 📊\n")
	b.WriteString("=======================\n")
	fmt.Fprintf(&b, "%-25s %-12s %-12s %-12s %-12s\n", "Map", "Ants", "Avg (ms)", "Min (ms)", "Max (ms)")
	b.WriteString(strings.Repeat("─", 75))
	b.WriteByte('\n')
	for _, r := range results {
		fmt.Fprintf(&b, "%-25s %-12d %-12.2f %-12.2f %-12.2f\n", r.MapName, r.Agents, r.AvgMs, r.MinMs, r.MaxMs)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
