package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/underlay/delta"
	"github.com/underlay/delta/loader"
	"github.com/underlay/delta/patch"
	"github.com/underlay/delta/types"
)

func newDiffCommand(stdout, stderr io.Writer, config *delta.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "diff FILE",
		Short: "Print the RDF Patch that turns the dataset into a document.",
		Long: `
Stages the difference between the dataset and the document in an overlay
and prints it as an RDF Patch. The dataset is not modified.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quads, err := loader.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "reading %s", args[0])
			}

			store, _, err := openStore(config, stderr)
			if err != nil {
				return err
			}
			defer store.Close()

			overlay, err := store.NewOverlay()
			if err != nil {
				return err
			}
			defer overlay.Discard()

			if _, err := overlay.DeleteAny(types.Quad{}); err != nil {
				return err
			}
			for _, quad := range quads {
				if err := overlay.Add(quad); err != nil {
					return err
				}
			}
			return patch.Write(stdout, patch.Diff(overlay))
		},
	}
}
