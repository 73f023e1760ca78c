package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/underlay/delta"
	"github.com/underlay/delta/patch"
)

func newApplyCommand(stdin io.Reader, stdout, stderr io.Writer, config *delta.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [PATCH...]",
		Short: "Apply RDF Patch files.",
		Long: `
Replays RDF Patch files against the dataset through an overlay. TX, TC and
TA rows become write transactions of the overlay. With no arguments the
patch is read from stdin.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, l, err := openStore(config, stderr)
			if err != nil {
				return err
			}
			defer store.Close()

			overlay, err := store.NewOverlay()
			if err != nil {
				return err
			}

			apply := func(name string, r io.Reader) error {
				p, err := patch.Read(r)
				if err != nil {
					return errors.Wrapf(err, "reading %s", name)
				}
				if err := patch.Apply(p, overlay, l); err != nil {
					overlay.Discard()
					return errors.Wrapf(err, "applying %s", name)
				}
				added, deleted := p.Changes()
				fmt.Fprintf(stdout, "%s: +%d -%d\n", name, added, deleted)
				return nil
			}

			if len(args) == 0 {
				if err := apply("stdin", stdin); err != nil {
					return err
				}
			}
			for _, path := range args {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				err = apply(path, file)
				file.Close()
				if err != nil {
					return err
				}
			}
			return overlay.Flush()
		},
	}
}
