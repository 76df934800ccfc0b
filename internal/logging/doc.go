// Package logging assembles the structured slog loggers used by magicid.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standard field keys, and context helpers that tag log lines with the
// current run and stage. NewNop provides a discarding logger for tests and
// for wiring code that cannot fail.
package logging
