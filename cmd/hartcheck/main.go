// Command hartcheck runs the processor compliance catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hartcheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hartcheck:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
