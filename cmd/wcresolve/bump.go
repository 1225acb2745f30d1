package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisyuyangshen/subversion/pkg/wc"
)

func bumpMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return fmt.Errorf("exactly one fixture path is required")
	}
	f, err := loadFixture(arguments[0])
	if err != nil {
		return err
	}
	backend, request := f.build()

	depth := wc.UpdateDepthInfinity
	switch bumpConfiguration.depth {
	case "empty":
		depth = wc.UpdateDepthEmpty
	case "files":
		depth = wc.UpdateDepthFiles
	case "infinity", "":
		depth = wc.UpdateDepthInfinity
	default:
		return fmt.Errorf("unknown depth %q (expected empty, files, or infinity)", bumpConfiguration.depth)
	}

	candidate := wc.MoveCandidate{
		Src:        request.Move.SrcRelpath,
		Dst:        request.Move.DstRelpath,
		SrcOpDepth: request.Move.SrcOpDepth,
	}
	bumped, err := wc.Bump(wc.Collaborators{Backend: backend}, []wc.MoveCandidate{candidate}, depth,
		request.Operation, request.OldRevision, request.NewRevision, nil)
	if err != nil {
		return err
	}

	for _, path := range bumped {
		fmt.Printf("bumped %s\n", path)
	}
	if len(bumped) == 0 {
		fmt.Println("no candidates were bumped")
	}

	if conflicts := backend.Conflicts(); len(conflicts) > 0 {
		fmt.Println()
		fmt.Println("Conflicts:")
		for _, row := range conflicts {
			skeleton, err := wc.DecodeConflict(row.Payload)
			if err != nil {
				fmt.Printf("  %s (undecodable conflict payload: %v)\n", row.Path, err)
				continue
			}
			fmt.Printf("  %s: reason=%s\n", row.Path, conflictReasonLabel(skeleton.Reason))
		}
	}
	return nil
}

var bumpCommand = &cobra.Command{
	Use:          "bump <fixture.yaml>",
	Short:        "Attempt to fast-forward a single move candidate without the full walk",
	RunE:         bumpMain,
	SilenceUsage: true,
}

var bumpConfiguration struct {
	help  bool
	depth string
}

func init() {
	flags := bumpCommand.Flags()
	flags.SortFlags = false
	flags.BoolVarP(&bumpConfiguration.help, "help", "h", false, "Show help information")
	flags.StringVar(&bumpConfiguration.depth, "depth", "infinity", "Depth claimed by the incoming update (empty, files, or infinity)")
}
