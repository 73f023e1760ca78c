// Command delta is the entrypoint for the delta binary.
package main

import (
	"fmt"
	"os"

	"github.com/underlay/delta/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
