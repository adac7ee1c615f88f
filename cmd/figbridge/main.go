// Command figbridge drives a design-tool plugin through a local HTTP relay.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/figbridge/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
