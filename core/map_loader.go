package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/signalsfoundry/hive-simulator/model"
)

// LoadError reports a fatal problem with one line of a map file.
type LoadError struct {
	Line int
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("map line %d (%q): %v", e.Line, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type mapLine struct {
	number      int
	name        string
	connections string
}

// LoadWorld parses the text map format:
//
//	<Name> [<direction>=<TargetName>]*
//
// Node indices follow declaration order. Unknown directions and unknown
// targets are dropped silently; declaring a node twice is fatal.
func LoadWorld(r io.Reader) (*World, error) {
	lines, err := readMapLines(r)
	if err != nil {
		return nil, fmt.Errorf("LoadWorld: read failed: %w", err)
	}

	// 1) Names, so forward references resolve.
	w := &World{
		Nodes: make([]model.Node, 0, len(lines)),
		names: make([]string, 0, len(lines)),
		index: make(map[string]int, len(lines)),
	}
	for _, l := range lines {
		if _, err := w.AddNode(l.name); err != nil {
			return nil, &LoadError{Line: l.number, Name: l.name, Err: ErrDuplicateNode}
		}
	}

	// 2) Connections.
	for i, l := range lines {
		for _, token := range strings.Split(l.connections, " ") {
			dirToken, targetName, ok := strings.Cut(token, "=")
			if !ok {
				continue
			}
			dir, ok := model.ParseDirection(dirToken)
			if !ok {
				continue
			}
			target, ok := w.index[targetName]
			if !ok {
				continue
			}
			w.Nodes[i].Link(dir, target)
		}
	}
	return w, nil
}

// LoadWorldFile opens path and parses it with LoadWorld.
func LoadWorldFile(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map %q: %w", path, err)
	}
	defer f.Close()

	w, err := LoadWorld(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load map %q: %w", path, err)
	}
	return w, nil
}

func readMapLines(r io.Reader) ([]mapLine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []mapLine
	number := 0
	for sc.Scan() {
		number++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		name, connections, _ := strings.Cut(text, " ")
		if name == "" {
			continue
		}
		lines = append(lines, mapLine{number: number, name: name, connections: connections})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
