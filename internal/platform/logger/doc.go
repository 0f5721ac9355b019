// Package logger sets up JSON slog output at a configured level and carries
// request-scoped loggers through a context.
package logger
