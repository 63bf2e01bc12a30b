// Package logging builds the slog loggers used by the CLI and the compaction
// engine.
//
// Two output formats are supported: a console handler that renders
// timestamp/level/component prefixes with key=value attributes, and a JSON
// handler for machine consumption. Output can fan out to stdout and a log
// file at the same time. Typed attribute helpers keep call sites terse and
// NewNop supplies a discard logger for tests.
package logging
