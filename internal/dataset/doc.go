// Package dataset models the on-disk episode store: per-episode parquet
// shards under data/, optional per-episode media directories under videos/,
// and JSON metadata tables under meta/.
//
// The Layout type maps episode indices to canonical artifact paths using the
// fixed zero-padded naming scheme. State is the in-memory aggregate of every
// metadata table plus the deletion blacklist; Load and Save are the only
// filesystem touch points, and Save writes each table through a temp file
// rename so a crash cannot leave a half-written table behind.
//
// Treat this package as the single source of truth for dataset naming and
// serialization; the compaction engine never builds paths or JSON on its own.
package dataset
