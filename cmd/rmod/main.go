// Command rmod resolves CommonJS requires, builds module bundles and runs
// them in an embedded JavaScript runtime.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/rmod/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
