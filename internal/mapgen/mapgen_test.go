package mapgen_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/hive-simulator/core"
	"github.com/signalsfoundry/hive-simulator/internal/mapgen"
)

// TestSpiralCoordsFirstRings: origin, then ring 1 counter-clockwise from (1,0).
func TestSpiralCoordsFirstRings(t *testing.T) {
	got := mapgen.SpiralCoords(13)
	want := []mapgen.Coord{
		{0, 0},
		{1, 0}, {0, 1}, {-1, 0}, {0, -1},
		{2, 0}, {1, 1}, {0, 2}, {-1, 1}, {-2, 0}, {-1, -1}, {0, -2}, {1, -1},
	}
	require.Equal(t, want, got)
}

// TestSpiralCoordsRingSizes: ring r holds 4r coordinates, all at distance r.
func TestSpiralCoordsRingSizes(t *testing.T) {
	coords := mapgen.SpiralCoords(1 + 4 + 8 + 12 + 16)
	seen := make(map[mapgen.Coord]bool, len(coords))
	perRing := make(map[int]int)
	for _, c := range coords {
		require.False(t, seen[c], "duplicate coordinate %v", c)
		seen[c] = true
		perRing[abs(c.X)+abs(c.Y)]++
	}
	assert.Equal(t, 1, perRing[0])
	for r := 1; r <= 4; r++ {
		assert.Equal(t, 4*r, perRing[r], "ring %d size", r)
	}
}

func TestSpiralCoordsTruncates(t *testing.T) {
	assert.Len(t, mapgen.SpiralCoords(7), 7)
	assert.Nil(t, mapgen.SpiralCoords(0))
}

func TestHiveName(t *testing.T) {
	assert.Equal(t, "Hive_+000_+000", mapgen.HiveName(mapgen.Coord{}))
	assert.Equal(t, "Hive_+012_-003", mapgen.HiveName(mapgen.Coord{X: 12, Y: -3}))
	assert.Equal(t, "Hive_-1234_+5678", mapgen.HiveName(mapgen.Coord{X: -1234, Y: 5678}))
}

func TestGenerateFiveNodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, mapgen.Generate(&buf, 5, nil))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t,
		"Hive_+000_+000 north=Hive_+000_+001 west=Hive_-001_+000 south=Hive_+000_-001 east=Hive_+001_+000",
		lines[0])
	assert.Equal(t, "Hive_+001_+000 west=Hive_+000_+000", lines[1])
}

func TestGenerateSingleNodeLoads(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, mapgen.Generate(&buf, 1, nil))
	assert.Equal(t, "Hive_+000_+000 \n", buf.String())

	w, err := core.LoadWorld(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, w.Len())
	assert.Equal(t, 0, w.Node(0).ActiveDegree)
}

// TestGenerateIsSymmetric: every generated edge has its back-reference, so
// destruction never leaves stale adjacency behind.
func TestGenerateIsSymmetric(t *testing.T) {
	for _, n := range []int{2, 10, 41, 500} {
		var buf bytes.Buffer
		require.NoError(t, mapgen.Generate(&buf, n, nil))

		w, err := core.LoadWorld(&buf)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, n, w.Len())
		assert.Empty(t, core.CheckSymmetry(w), "n=%d", n)
		assert.Equal(t, 1, core.Summarize(w).Components, "n=%d", n)
	}
}

func TestGenerateReportsProgress(t *testing.T) {
	var calls []int
	require.NoError(t, mapgen.Generate(&bytes.Buffer{}, 20000, func(p int) { calls = append(calls, p) }))
	require.Len(t, calls, 100)
	assert.Equal(t, 0, calls[0])
	assert.Equal(t, 99, calls[99])

	calls = nil
	require.NoError(t, mapgen.Generate(&bytes.Buffer{}, 100, func(p int) { calls = append(calls, p) }))
	assert.Empty(t, calls)
}

func TestGenerateRejectsEmptyMap(t *testing.T) {
	err := mapgen.Generate(&bytes.Buffer{}, 0, nil)
	require.True(t, errors.Is(err, mapgen.ErrNoNodes))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
