// Command alchemistctl is the operator CLI for the Alchemist control plane:
// run, verify, replay, and trace against a local event log.
package main

import (
	"fmt"
	"os"

	"github.com/cimalchemist/alchemist/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
