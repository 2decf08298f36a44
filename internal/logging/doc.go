// Package logging centralizes slog construction and the structured field
// vocabulary used across the daemon.
//
// New builds a logger from Options (level, console or JSON format, output
// paths); the console handler renders a compact single-line format with the
// component name folded into the message prefix. Field* constants keep
// attribute keys consistent so log queries work across components, and
// ContextFields derives case/step/lane attributes from a request context.
// CleanupOldLogs prunes per-run log files past the configured retention.
package logging
