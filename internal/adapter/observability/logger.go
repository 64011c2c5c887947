// Package observability wires the structured logger from configuration.
package observability

import (
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/config"
)

// NewLogger builds the process-wide logger from logging configuration.
// Unrecognized values fall back to info/human.
func NewLogger(cfg config.LoggingConfig) httpx.Logger {
	return httpx.NewDefaultLogger(parseLevel(cfg.Level), parseFormat(cfg.Format))
}

func parseLevel(level string) httpx.LogLevel {
	switch level {
	case "debug":
		return httpx.LogLevelDebug
	case "error":
		return httpx.LogLevelError
	default:
		return httpx.LogLevelInfo
	}
}

func parseFormat(format string) httpx.LogFormat {
	if format == "json" {
		return httpx.LogFormatJSON
	}
	return httpx.LogFormatHuman
}
