// maintctl drives failure reports through the maintenance API.
//
// Usage:
//
//	maintctl create --line-id=L1 --line-name="Line A" --description="motor noise" --reported-by=Op1
//	maintctl arrived <id>
//	maintctl start <id> [--assigned-to=<name>]
//	maintctl upload <id> <photo>
//	maintctl close <id> [--comments=<text>]
//	maintctl list [--status=<status>] [--line=<id>] [-o yaml]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/timmy/linemaint/internal/apiclient"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", apiclient.UserMessage(err))
		return 1
	}
	return 0
}
