// Command rhdlc resolves module structure and names for an rhdl source
// tree; see internal/cli for the command's flags and behavior.
package main

import (
	"fmt"
	"os"

	"github.com/rhdl/rhdlc/internal/cli"
)

func main() {
	os.Exit(run())
}

// run executes the command and returns a process exit code. It is factored
// out of main so the testscript harness can register it as a subprocess
// command without forking a real binary.
func run() int {
	cmd := cli.New()
	if err := cmd.Execute(); err != nil {
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}
