package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/hive-simulator/internal/mapgen"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapgen <num_nodes> <output_file>",
		Short: "Generate a spiral grid hive map for scale testing",
		Long: `mapgen writes a synthetic map whose hives sit on a diamond spiral around the
origin. Every hive is connected to each generated orthogonal neighbor, so
connections are always symmetric.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			numNodes, err := strconv.Atoi(args[0])
			if err != nil || numNodes < 0 {
				return fmt.Errorf("Invalid number of nodes: '%s'", args[0])
			}
			if numNodes == 0 {
				return errors.New("Number of nodes must be greater than 0")
			}
			return generate(cmd.OutOrStdout(), numNodes, args[1])
		},
	}
	cmd.SetOut(stdout)
	return cmd
}

func generate(out io.Writer, numNodes int, path string) error {
	fmt.Fprintf(out, "Generating %d nodes...\n", numNodes)
	start := time.Now()

	fmt.Fprintf(out, "Generating spiral grid map with %d nodes to %s\n", numNodes, path)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}

	err = mapgen.Generate(f, numNodes, func(percent int) {
		fmt.Fprintf(out, "Progress: %d%%\n", percent)
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	fmt.Fprintln(out, "Map generation complete!")

	fmt.Fprintf(out, "Generation took: %v\n", time.Since(start))
	fmt.Fprintf(out, "Generated %d nodes in %s\n", numNodes, path)
	return nil
}
