// Package history persists a journal of compaction runs in SQLite.
//
// Every live run is recorded when it starts and finalized with its outcome
// counts, so an aborted run that left a dataset partially modified can be
// spotted after the fact. The journal lives next to the log files and is
// diagnostic data, not an archive; deleting it loses nothing but history.
package history
