// Package logging constructs the slog loggers used across lathe and provides
// shared attribute helpers so field names stay consistent between components.
package logging
