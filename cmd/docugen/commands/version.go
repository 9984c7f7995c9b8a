package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, injected at link time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// NewVersionCommand constructs the 'version' command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version information",
		GroupID: "core",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (commit %s, built %s, %s)\n",
				cliExecutable, version, commit, date, runtime.Version())
		},
	}
}
