// Package logging assembles the structured slog loggers used by every
// autounpack component.
//
// It owns the console and JSON handlers, output and level plumbing, per-run
// log files with retention, and context helpers that tag log lines with the
// run ID and the pipeline step being executed. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
