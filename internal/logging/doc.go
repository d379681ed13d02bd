// Package logging constructs the process slog logger and provides the
// attribute helpers and component-logger conventions used across the
// codebase.
package logging
