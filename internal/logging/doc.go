// Package logging assembles the structured slog loggers used across the
// converter.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and defines the standardized field keys (component, file, frame,
// run id) so every subsystem tags log lines the same way. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
