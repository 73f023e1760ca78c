package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/underlay/delta"
	"github.com/underlay/delta/types"
)

func newDumpCommand(stdout, stderr io.Writer, config *delta.Config) *cobra.Command {
	var graph string
	var defaultGraph bool
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the dataset as N-Quads.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(config, stderr)
			if err != nil {
				return err
			}
			defer store.Close()

			var pattern types.Quad
			if defaultGraph {
				pattern.Graph = types.DefaultGraph
			} else if graph != "" {
				pattern.Graph, err = types.ParseTerm(graph)
				if err != nil {
					return err
				}
			}
			return store.Export(stdout, pattern)
		},
	}
	flags := dumpCmd.Flags()
	flags.StringVarP(&graph, "graph", "g", "", "Only dump this graph, in N-Quads syntax (<iri> or _:label)")
	flags.BoolVar(&defaultGraph, "default-graph", false, "Only dump the default graph")
	return dumpCmd
}
