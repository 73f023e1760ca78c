// Package cmd implements the delta command line.
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/underlay/delta"
	"github.com/underlay/delta/logger"
)

// NewRootCommand returns the delta command with every subcommand attached
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	config := delta.NewConfig()
	rc := &cobra.Command{
		Use:   "delta",
		Short: "delta buffers edits to an RDF dataset and applies them in batches.",
		Long: `delta stores RDF quads in a Badger database. Documents and RDF Patch
files are applied through a buffering overlay that flushes to the
database after a configurable number of committed transactions.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags())
		},
	}

	flags := rc.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file to read from.")
	flags.StringVarP(&config.DataDir, "data-dir", "d", config.DataDir, "Badger directory; empty for an in-memory dataset.")
	flags.IntVar(&config.WriteTxnLimit, "write-txn-limit", config.WriteTxnLimit, "Committed write transactions buffered before a flush.")
	flags.BoolVar(&config.Unique, "unique", config.Unique, "Check the database before buffering an edit.")
	flags.Int64Var(&config.MaxTableSize, "max-table-size", config.MaxTableSize, "Badger table size in bytes; one flush holds at most 15% of it.")
	flags.BoolVarP(&config.Verbose, "verbose", "v", config.Verbose, "Enable debug logging.")

	rc.AddCommand(newLoadCommand(stdout, stderr, config))
	rc.AddCommand(newDumpCommand(stdout, stderr, config))
	rc.AddCommand(newApplyCommand(stdin, stdout, stderr, config))
	rc.AddCommand(newDiffCommand(stdout, stderr, config))
	rc.AddCommand(newGenerateConfigCommand(stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// openStore opens the store described by the resolved configuration
func openStore(config *delta.Config, stderr io.Writer) (*delta.Store, logger.Logger, error) {
	l := logger.NewStandardLogger(stderr)
	if config.Verbose {
		l = logger.NewVerboseLogger(stderr)
	}
	store, err := delta.Open(config, l)
	return store, l, err
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order.
//
// Environment variables are capitalized flag names with dashes replaced by
// underscores, prefixed with DELTA_.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix("DELTA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}

		for _, key := range v.AllKeys() {
			if _, ok := validTags[key]; !ok {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}
