package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisyuyangshen/subversion/pkg/wc"
)

func resolveMain(_ *cobra.Command, arguments []string) error {
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
	return nil
}

var resolveCommand = &cobra.Command{
	Use:          "resolve <fixture.yaml>",
	Short:        "Drive a single move resolution against a fixture and print the report",
	RunE:         resolveMain,
	SilenceUsage: true,
}

func init() {
	flags := resolveCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&resolveConfiguration.help, "help", "h", false, "Show help information")
}

var resolveConfiguration struct {
	help bool
}
