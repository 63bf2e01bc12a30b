package compact

import (
	"fmt"
)

// ActionKind names one category of artifact operation.
type ActionKind string

const (
	ActionDeleteShard ActionKind = "delete shard"
	ActionDeleteMedia ActionKind = "delete media"
	ActionRenameShard ActionKind = "rename shard"
	ActionRenameMedia ActionKind = "rename media"
)

// Action is one performed (or intended, for dry runs) artifact operation.
type Action struct {
	Kind    ActionKind
	Episode int
	Path    string
	// Target is set for renames.
	Target string
}

// Result describes what a compaction run did, or would do for a dry run.
type Result struct {
	// SourcePath is the dataset the run was invoked on; Root is the tree
	// that was (or would be) mutated — they differ in copy mode.
	SourcePath string
	Root       string

	DryRun        bool
	Copied        bool
	MetadataSaved bool

	Plan    *Plan
	Actions []Action
	// Deleted lists removed episodes that had at least one artifact on
	// disk; AlreadyAbsent lists removed episodes with none.
	Deleted       []int
	AlreadyAbsent []int
	RenamedShards int
	RenamedMedia  int
	Remaining     int
}

// Lines renders the line-oriented action report.
func (r *Result) Lines() []string {
	var lines []string

	if r.DryRun && r.Root != r.SourcePath {
		lines = append(lines, fmt.Sprintf("Would copy dataset to %s", r.Root))
	}

	if r.Plan != nil && len(r.Plan.Removed) == 0 {
		lines = append(lines, "No blacklisted episodes found.")
		if r.Copied {
			lines = append(lines, fmt.Sprintf("Copied dataset to %s.", r.Root))
		}
		return lines
	}

	for _, action := range r.Actions {
		switch action.Kind {
		case ActionDeleteShard, ActionDeleteMedia:
			if r.DryRun {
				lines = append(lines, fmt.Sprintf("Would delete %s", action.Path))
			} else {
				lines = append(lines, fmt.Sprintf("Deleted %s", action.Path))
			}
		case ActionRenameShard, ActionRenameMedia:
			if r.DryRun {
				lines = append(lines, fmt.Sprintf("Would rename %s -> %s", action.Path, action.Target))
			} else {
				lines = append(lines, fmt.Sprintf("Renamed %s -> %s", action.Path, action.Target))
			}
		}
	}

	for _, index := range r.AlreadyAbsent {
		lines = append(lines, fmt.Sprintf("Episode %d files not found (already absent)", index))
	}
	return lines
}

// Summary renders the trailing one-line outcome.
func (r *Result) Summary() string {
	if r.Plan != nil && len(r.Plan.Removed) == 0 {
		return "Nothing to do."
	}
	if r.DryRun {
		return fmt.Sprintf(
			"Dry run complete. %d episodes would be deleted, %d shards renamed; %d episodes would remain.",
			len(r.Deleted), r.RenamedShards, r.Remaining,
		)
	}
	return fmt.Sprintf(
		"Deleted %d episodes (%d already absent), renamed %d shards and %d media directories; %d episodes remain.",
		len(r.Deleted), len(r.AlreadyAbsent), r.RenamedShards, r.RenamedMedia, r.Remaining,
	)
}
