package main

import (
	"fmt"
	"os"

	"github.com/loomkit/loom/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands render their own error output; Execute's error only
		// carries the exit code.
		code := cli.GetExitCode(err)
		if code == 0 {
			code = cli.ExitFailure
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}
