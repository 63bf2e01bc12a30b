// Package compact removes blacklisted episodes from a dataset and renumbers
// the survivors onto a dense zero-based range.
//
// Planning is a pure function of the loaded metadata state: it derives the
// survivor set, the old-to-new index mapping, and the projected metadata
// tables without touching the filesystem. The Executor applies a plan either
// in place or against a fresh copy of the dataset, always finishing every
// deletion before the first rename so a renamed shard can never collide with
// a doomed one occupying its slot. Metadata is rewritten only after all
// filesystem operations succeed; a failure mid-run aborts with the dataset
// flagged as partially modified.
package compact
