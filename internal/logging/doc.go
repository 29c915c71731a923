// Package logging builds the process slog logger: level parsing, text or
// JSON output, and optional rotated file output.
package logging
