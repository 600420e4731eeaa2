// Package bench runs repeated simulations across a matrix of maps and agent
// counts and aggregates their wall-clock timings.
package bench

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRuns is the number of trials per configuration.
const DefaultRuns = 10

var ErrInvalidMatrix = errors.New("invalid benchmark matrix")

// Matrix describes a benchmark sweep.
type Matrix struct {
	// Runs is the number of trials per (map, agents) configuration.
	Runs int `yaml:"runs"`
	// Workers bounds how many configurations run concurrently; 0 uses
	// GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
	// Seed fixes placement and walks when non-zero. Trial t of a
	// configuration uses Seed+t.
	Seed uint64 `yaml:"seed,omitempty"`
	// MoveCap overrides the per-agent move cap when non-zero.
	MoveCap int    `yaml:"move_cap,omitempty"`
	Cases   []Case `yaml:"cases"`
}

// Case is one map together with the agent counts to try on it.
type Case struct {
	Map    string `yaml:"map"`
	Label  string `yaml:"label,omitempty"`
	Agents []int  `yaml:"agents"`
}

// Config is a single (map, agents) pair of a flattened matrix.
type Config struct {
	Map    string
	Label  string
	Agents int
}

// DefaultMatrix is the stock sweep over the large and very large maps.
func DefaultMatrix() Matrix {
	return Matrix{
		Runs: DefaultRuns,
		Cases: []Case{
			{
				Map:    "hiveum_map_large.txt",
				Label:  "Large Map (100K nodes)",
				Agents: []int{1, 10, 100, 1000, 10000, 100000},
			},
			{
				Map:    "hiveum_map_very_large.txt",
				Label:  "Very Large Map (1M nodes)",
				Agents: []int{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
		},
	}
}

// LoadMatrix reads a YAML matrix from path.
func LoadMatrix(path string) (Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("failed to open matrix %q: %w", path, err)
	}
	defer f.Close()

	m, err := ParseMatrix(f)
	if err != nil {
		return Matrix{}, fmt.Errorf("matrix %q: %w", path, err)
	}
	return m, nil
}

// ParseMatrix decodes and validates a YAML matrix. Runs defaults to
// DefaultRuns when omitted.
func ParseMatrix(r io.Reader) (Matrix, error) {
	var m Matrix
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Matrix{}, fmt.Errorf("failed to parse matrix: %w", err)
	}
	if m.Runs == 0 {
		m.Runs = DefaultRuns
	}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// Validate checks that the matrix describes at least one runnable
// configuration.
func (m Matrix) Validate() error {
	if m.Runs <= 0 {
		return fmt.Errorf("%w: runs must be greater than 0, got %d", ErrInvalidMatrix, m.Runs)
	}
	if m.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidMatrix, m.Workers)
	}
	if m.MoveCap < 0 {
		return fmt.Errorf("%w: move_cap must not be negative, got %d", ErrInvalidMatrix, m.MoveCap)
	}
	if len(m.Cases) == 0 {
		return fmt.Errorf("%w: no cases", ErrInvalidMatrix)
	}
	for i, c := range m.Cases {
		if c.Map == "" {
			return fmt.Errorf("%w: case %d has no map", ErrInvalidMatrix, i)
		}
		if len(c.Agents) == 0 {
			return fmt.Errorf("%w: case %d (%s) has no agent counts", ErrInvalidMatrix, i, c.Map)
		}
		for _, a := range c.Agents {
			if a <= 0 {
				return fmt.Errorf("%w: case %d (%s) has agent count %d", ErrInvalidMatrix, i, c.Map, a)
			}
		}
	}
	return nil
}

// Configs flattens the matrix in declaration order.
func (m Matrix) Configs() []Config {
	var out []Config
	for _, c := range m.Cases {
		for _, a := range c.Agents {
			out = append(out, Config{Map: c.Map, Label: c.Label, Agents: a})
		}
	}
	return out
}
