// Package logger builds configured log/slog loggers with consistent
// formatting and shared attribute helpers.
//
// Defaults target production (JSON, info level); development setups switch to
// readable text output with WithDevelopment.
package logger
