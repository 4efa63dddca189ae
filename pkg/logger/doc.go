// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: JSON output in prod, text elsewhere,
// and request IDs from the context attached to every record.
package logger
