package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chrisyuyangshen/subversion/cmd"
	"github.com/chrisyuyangshen/subversion/pkg/wc"
)

// computeWatchStatusLine mirrors the teacher's session status line: a
// short conflict-count summary suitable for repeated overwriting on one
// terminal line.
func computeWatchStatusLine(conflictCount int) string {
	if conflictCount == 0 {
		return "No conflicts recorded"
	}
	return fmt.Sprintf("%d conflict(s) recorded", conflictCount)
}

func watchMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return fmt.Errorf("exactly one fixture path is required")
	}
	f, err := loadFixture(arguments[0])
	if err != nil {
		return err
	}
	backend, request := f.build()

	sink := &recordingSink{}
	executor := &recordingExecutor{}
	if err := wc.Resolve(wc.Collaborators{
		Backend:  backend,
		Executor: executor,
		Notify:   sink,
	}, request); err != nil {
		return err
	}
	printReport(sink, executor, backend.Conflicts())

	// Arrange for termination signals to cancel the watch loop, the same
	// way the daemon-facing monitor command responds to Ctrl-C.
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, cmd.TerminationSignals...)
	go func() {
		<-signals
		cancel()
	}()

	statusLinePrinter := &cmd.StatusLinePrinter{}
	defer statusLinePrinter.BreakIfNonEmpty()

	var previousIndex uint64
	for {
		index, err := backend.Tracker.WaitForChange(ctx, previousIndex)
		if err != nil {
			return nil
		}
		previousIndex = index
		statusLinePrinter.Print(computeWatchStatusLine(len(backend.Conflicts())))
	}
}

var watchCommand = &cobra.Command{
	Use:          "watch <fixture.yaml>",
	Short:        "Resolve a fixture, then watch the store for further committed activity",
	RunE:         watchMain,
	SilenceUsage: true,
}

var watchConfiguration struct {
	help bool
}

func init() {
	flags := watchCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&watchConfiguration.help, "help", "h", false, "Show help information")
}
