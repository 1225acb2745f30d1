package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/chrisyuyangshen/subversion/pkg/wc"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
)

// recordingSink accumulates every notification delivered by a resolution,
// so the report printer can summarize them once Resolve returns.
type recordingSink struct {
	records []wc.NotificationRecord
}

func (s *recordingSink) Notify(record wc.NotificationRecord) {
	s.records = append(s.records, record)
}

// recordingExecutor accumulates every work item a resolution spools,
// standing in for the real filesystem executor spec.md places outside
// this repository.
type recordingExecutor struct {
	items []wc.WorkItem
}

func (e *recordingExecutor) Execute(item wc.WorkItem) error {
	e.items = append(e.items, item)
	return nil
}

func mergeStateLabel(state wc.MergeState) string {
	switch state {
	case wc.MergeStateChanged:
		return "changed"
	case wc.MergeStateMerged:
		return color.YellowString("merged")
	case wc.MergeStateConflicted:
		return color.RedString("conflicted")
	default:
		return "unchanged"
	}
}

func notificationActionLabel(action wc.NotificationAction) string {
	switch action {
	case wc.NotificationUpdateAdd:
		return color.GreenString("A")
	case wc.NotificationUpdateUpdate:
		return color.CyanString("U")
	case wc.NotificationUpdateDelete:
		return color.YellowString("D")
	case wc.NotificationTreeConflict:
		return color.RedString("C")
	default:
		return "?"
	}
}

func workItemKindLabel(kind wc.WorkItemKind) string {
	switch kind {
	case wc.WorkItemInstallFile:
		return "install-file"
	case wc.WorkItemRemoveFile:
		return "remove-file"
	case wc.WorkItemInstallDirectory:
		return "install-directory"
	case wc.WorkItemRemoveDirectory:
		return "remove-directory"
	case wc.WorkItemWriteMarker:
		return "write-marker"
	case wc.WorkItemInstallMergeResult:
		return "install-merge-result"
	default:
		return "unknown"
	}
}

// printReport renders the outcome of a resolution: every notification in
// walk order, every spooled work item, and every conflict the resolver
// recorded, followed by a one-line summary.
func printReport(sink *recordingSink, executor *recordingExecutor, conflicts []store.ConflictRow) {
	for _, record := range sink.records {
		fmt.Printf("%s %s", notificationActionLabel(record.Action), record.Path)
		if record.Action == wc.NotificationUpdateUpdate {
			fmt.Printf(" (content: %s, props: %s)", mergeStateLabel(record.ContentState), mergeStateLabel(record.PropState))
		}
		fmt.Println()
	}

	for _, item := range executor.items {
		fmt.Printf("  work item: %s %s\n", workItemKindLabel(item.Kind), item.Path)
	}

	if len(conflicts) > 0 {
		fmt.Println()
		fmt.Println(color.RedString("Conflicts:"))
		sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Path < conflicts[j].Path })
		for _, row := range conflicts {
			skeleton, err := wc.DecodeConflict(row.Payload)
			if err != nil {
				fmt.Printf("  %s (undecodable conflict payload: %v)\n", row.Path, err)
				continue
			}
			fmt.Printf("  %s: %s conflict, reason=%s, action=%s\n",
				row.Path, conflictKindLabel(skeleton.Kind), conflictReasonLabel(skeleton.Reason), conflictActionLabel(skeleton.Action))
		}
	}

	fmt.Println()
	fmt.Printf("%s notifications, %s work items, %s conflicts\n",
		humanize.Comma(int64(len(sink.records))),
		humanize.Comma(int64(len(executor.items))),
		humanize.Comma(int64(len(conflicts))),
	)
}

func conflictKindLabel(kind wc.ConflictKind) string {
	switch kind {
	case wc.ConflictKindText:
		return "text"
	case wc.ConflictKindProperty:
		return "property"
	default:
		return "tree"
	}
}

func conflictReasonLabel(reason wc.ConflictReason) string {
	switch reason {
	case wc.ConflictReasonEdited:
		return "edited"
	case wc.ConflictReasonDeleted:
		return "deleted"
	case wc.ConflictReasonMovedAway:
		return "moved-away"
	case wc.ConflictReasonMoveEdit:
		return "move-edit"
	default:
		return "unversioned"
	}
}

func conflictActionLabel(action wc.ConflictAction) string {
	switch action {
	case wc.ConflictActionDelete:
		return "delete"
	case wc.ConflictActionEdit:
		return "edit"
	default:
		return "add"
	}
}
