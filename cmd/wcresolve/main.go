package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func rootMain(command *cobra.Command, arguments []string) {
	// If no subcommand was given, then print help information and bail. We
	// don't have to worry about warning about stray arguments here, since
	// Cobra will already have rejected them as an unknown subcommand.
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:          "wcresolve",
	Short:        "Resolve update-move tree conflicts against a working-copy fixture",
	Run:          rootMain,
	SilenceUsage: true,
}

var rootConfiguration struct {
	// help indicates whether or not to show help information and exit.
	help bool
}

func init() {
	flags := rootCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	cobra.EnableCommandSorting = false

	rootCommand.AddCommand(
		resolveCommand,
		bumpCommand,
		watchCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
