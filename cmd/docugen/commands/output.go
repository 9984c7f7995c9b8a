package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/docugen/docugen/pkg/output"
	"github.com/docugen/docugen/pkg/output/subscribers"
)

// setupOutputPipeline wires the user-facing output stream for a command run.
// JSON mode swaps the human formatter for JSON Lines on stdout; diagnostics
// go to stderr and are gated by the -v count.
func setupOutputPipeline(cmd *cobra.Command) output.Output {
	stream := output.NewOutputEventStream()

	jsonMode, _ := cmd.Flags().GetBool("json")
	if jsonMode {
		stream.Subscribe(subscribers.NewJSONFormatter(os.Stdout))
	} else {
		stream.Subscribe(subscribers.NewHumanFormatter(os.Stdout, os.Stderr, colorEnabled()))
	}

	verbosityCount, _ := cmd.Flags().GetCount("verbosity")
	if verbosityCount > 0 {
		stream.Subscribe(subscribers.NewDiagnosticSubscriber(diagLevel(verbosityCount), os.Stderr))
	}

	return output.NewDefaultOutput(stream)
}

// diagLevel maps the -v count to an output verbosity level.
func diagLevel(verbosityCount int) output.OutputLevel {
	switch {
	case verbosityCount >= 3:
		return output.LevelTrace
	case verbosityCount == 2:
		return output.LevelDebug
	default:
		return output.LevelVerbose
	}
}

// colorEnabled honors the NO_COLOR convention and disables styling when
// stdout is not a terminal.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
