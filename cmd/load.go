package cmd

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/underlay/delta"
	"github.com/underlay/delta/loader"
	"github.com/underlay/delta/types"
)

func newLoadCommand(stdout, stderr io.Writer, config *delta.Config) *cobra.Command {
	var graph string
	loadCmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Load N-Quads or JSON-LD documents.",
		Long: `
Loads each file into the dataset as one write transaction of an overlay.
The format is chosen by extension: .nq and .nt are read as N-Quads,
.jsonld and .json as JSON-LD.

If a file fails to read or load, its transaction is aborted and the files
loaded before it are flushed before the error is returned.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(config, stderr)
			if err != nil {
				return err
			}
			defer store.Close()

			overlay, err := store.NewOverlay()
			if err != nil {
				return err
			}

			// fail keeps the files committed so far
			fail := func(err error) error {
				overlay.End()
				if flushErr := overlay.Flush(); flushErr != nil {
					overlay.Discard()
					return errors.Wrapf(err, "also failed to flush earlier files: %v", flushErr)
				}
				return err
			}

			var target types.Term
			if graph != "" {
				target = types.NewIRI(graph)
			}

			for _, path := range args {
				quads, err := loader.ReadFile(path)
				if err != nil {
					return fail(errors.Wrapf(err, "reading %s", path))
				}

				if err := overlay.Begin(types.TxnWrite); err != nil {
					return fail(err)
				}
				for _, quad := range quads {
					if target.IsConcrete() {
						quad.Graph = target
					}
					if err := overlay.Add(quad); err != nil {
						return fail(errors.Wrapf(err, "loading %s", path))
					}
				}
				if err := overlay.Commit(); err != nil {
					return fail(errors.Wrapf(err, "loading %s", path))
				}
				fmt.Fprintf(stdout, "%s: %d quads\n", path, len(quads))
			}
			if err := overlay.Flush(); err != nil {
				overlay.Discard()
				return err
			}
			return nil
		},
	}
	loadCmd.Flags().StringVarP(&graph, "graph", "g", "", "Load every quad into this named graph")
	return loadCmd
}
