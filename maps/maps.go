// Package maps bundles the default hive map shipped with the binaries.
package maps

import (
	_ "embed"
	"strings"

	"github.com/signalsfoundry/hive-simulator/core"
)

// SmallName is the file name reported for the embedded map.
const SmallName = "hiveum_map_small.txt"

//go:embed hiveum_map_small.txt
var small string

// Small returns the raw text of the embedded small map.
func Small() string { return small }

// LoadSmall parses the embedded small map into a fresh world.
func LoadSmall() (*core.World, error) {
	return core.LoadWorld(strings.NewReader(small))
}
