// Package mapgen produces synthetic spiral-grid hive maps for scale testing.
package mapgen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/hive-simulator/model"
)

// ErrNoNodes is returned when asked to generate an empty map.
var ErrNoNodes = errors.New("number of nodes must be greater than 0")

// progressThreshold is the map size above which Generate reports progress.
const progressThreshold = 10000

// Coord is a grid position; north is +Y and east is +X.
type Coord struct {
	X, Y int
}

// Step returns the neighboring coordinate in direction d.
func (c Coord) Step(d model.Direction) Coord {
	switch d {
	case model.North:
		return Coord{c.X, c.Y + 1}
	case model.West:
		return Coord{c.X - 1, c.Y}
	case model.South:
		return Coord{c.X, c.Y - 1}
	default:
		return Coord{c.X + 1, c.Y}
	}
}

// HiveName renders the node name for c, e.g. Hive_+001_-002.
func HiveName(c Coord) string {
	return fmt.Sprintf("Hive_%+04d_%+04d", c.X, c.Y)
}

// SpiralCoords returns the first n coordinates of the diamond spiral: the
// origin, then each ring at Manhattan distance r = 1, 2, ... walked
// counter-clockwise starting from (r, 0).
func SpiralCoords(n int) []Coord {
	if n <= 0 {
		return nil
	}
	coords := make([]Coord, 0, n)
	coords = append(coords, Coord{})

	for r := 1; len(coords) < n; r++ {
		for edge := 0; edge < 4; edge++ {
			for i := 0; i < r; i++ {
				if len(coords) == n {
					return coords
				}
				coords = append(coords, ringCoord(r, edge, i))
			}
		}
	}
	return coords
}

func ringCoord(r, edge, i int) Coord {
	switch edge {
	case 0:
		return Coord{r - i, i}
	case 1:
		return Coord{-i, r - i}
	case 2:
		return Coord{-(r - i), -i}
	default:
		return Coord{i, -(r - i)}
	}
}

// Generate writes an n-node spiral map to w in the hive map grammar. Each
// node links to every generated orthogonal neighbor, so adjacency is
// symmetric. progress, when non-nil, is called with a percentage roughly
// once per percent for maps larger than 10000 nodes.
func Generate(w io.Writer, n int, progress func(percent int)) error {
	if n <= 0 {
		return ErrNoNodes
	}

	coords := SpiralCoords(n)
	present := make(map[Coord]struct{}, len(coords))
	for _, c := range coords {
		present[c] = struct{}{}
	}

	bw := bufio.NewWriter(w)
	var line strings.Builder
	for i, c := range coords {
		line.Reset()
		line.WriteString(HiveName(c))
		line.WriteByte(' ')
		first := true
		for _, d := range model.Directions {
			nb := c.Step(d)
			if _, ok := present[nb]; !ok {
				continue
			}
			if !first {
				line.WriteByte(' ')
			}
			first = false
			line.WriteString(d.String())
			line.WriteByte('=')
			line.WriteString(HiveName(nb))
		}
		line.WriteByte('\n')
		if _, err := bw.WriteString(line.String()); err != nil {
			return fmt.Errorf("write node %d: %w", i, err)
		}

		if progress != nil && n > progressThreshold && i%(n/100) == 0 {
			progress(i * 100 / n)
		}
	}
	return bw.Flush()
}
