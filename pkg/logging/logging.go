package logging

import (
	"log"
	"os"
)

// DebugEnabled controls whether or not Logger.Debug/Debugf/Debugln produce
// output. It is a package variable (rather than a per-logger setting) so
// that a single flag on the CLI harness can enable verbose tracing of a
// resolver transaction without threading a verbosity parameter through
// every component constructor.
var DebugEnabled bool

func init() {
	// Set the global logger to use standard output.
	log.SetOutput(os.Stdout)
}
