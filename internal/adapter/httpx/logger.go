package httpx

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// Logger provides structured logging for Bitbucket API calls. The MCP
// transport owns stdout, so all log output goes to stderr.
type Logger interface {
	// LogRequest logs an outgoing API request (credentials never included)
	LogRequest(ctx context.Context, req RequestLog)

	// LogResponse logs an API response with timing info
	LogResponse(ctx context.Context, resp ResponseLog)

	// LogError logs an API error
	LogError(ctx context.Context, err ErrorLog)

	// LogInfo logs an informational message with structured fields
	LogInfo(ctx context.Context, message string, fields map[string]interface{})

	// LogWarning logs a warning message with structured fields
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// RequestLog contains request information for logging.
type RequestLog struct {
	Method    string
	URL       string
	Timestamp time.Time
}

// ResponseLog contains response information for logging.
type ResponseLog struct {
	Method     string
	URL        string
	StatusCode int
	Duration   time.Duration
	Timestamp  time.Time
}

// ErrorLog contains error information for logging.
type ErrorLog struct {
	Operation  string
	Timestamp  time.Time
	Duration   time.Duration
	Error      error
	StatusCode int
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// DefaultLogger writes logs in structured format to stderr.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
	out    *log.Logger
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat) *DefaultLogger {
	return &DefaultLogger{
		level:  level,
		format: format,
		out:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

// LogRequest logs an API request.
func (l *DefaultLogger) LogRequest(ctx context.Context, req RequestLog) {
	if l.level > LogLevelDebug {
		return
	}

	url := RedactURLSecrets(req.URL)
	if l.format == LogFormatJSON {
		l.out.Printf(`{"level":"debug","type":"request","method":"%s","url":"%s","timestamp":"%s"}`,
			req.Method, url, req.Timestamp.Format(time.RFC3339))
	} else {
		l.out.Printf("[DEBUG] %s %s", req.Method, url)
	}
}

// LogResponse logs an API response.
func (l *DefaultLogger) LogResponse(ctx context.Context, resp ResponseLog) {
	if l.level > LogLevelInfo {
		return
	}

	url := RedactURLSecrets(resp.URL)
	if l.format == LogFormatJSON {
		l.out.Printf(`{"level":"info","type":"response","method":"%s","url":"%s","status_code":%d,"duration_ms":%d,"timestamp":"%s"}`,
			resp.Method, url, resp.StatusCode, resp.Duration.Milliseconds(),
			resp.Timestamp.Format(time.RFC3339))
	} else {
		l.out.Printf("[INFO] %s %s -> %d (%.1fs)", resp.Method, url, resp.StatusCode, resp.Duration.Seconds())
	}
}

// LogError logs an API error.
func (l *DefaultLogger) LogError(ctx context.Context, err ErrorLog) {
	if l.level > LogLevelError {
		return
	}

	msg := ErrorLogMessage(err.Error)
	if l.format == LogFormatJSON {
		l.out.Printf(`{"level":"error","type":"error","operation":"%s","status_code":%d,"duration_ms":%d,"error":%q,"timestamp":"%s"}`,
			err.Operation, err.StatusCode, err.Duration.Milliseconds(), msg,
			err.Timestamp.Format(time.RFC3339))
	} else {
		l.out.Printf("[ERROR] %s failed (status=%d): %s", err.Operation, err.StatusCode, msg)
	}
}

// LogInfo logs an informational message with structured fields.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.logMessage("info", "[INFO]", message, fields)
}

// LogWarning logs a warning message with structured fields.
// Warnings are emitted at the info threshold.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if l.level > LogLevelInfo {
		return
	}
	l.logMessage("warning", "[WARN]", message, fields)
}

func (l *DefaultLogger) logMessage(jsonLevel, humanPrefix, message string, fields map[string]interface{}) {
	if l.format == LogFormatJSON {
		l.out.Printf(`{"level":"%s","message":%q,"fields":"%s","timestamp":"%s"}`,
			jsonLevel, message, formatFields(fields), time.Now().Format(time.RFC3339))
	} else {
		if len(fields) == 0 {
			l.out.Printf("%s %s", humanPrefix, message)
		} else {
			l.out.Printf("%s %s (%s)", humanPrefix, message, formatFields(fields))
		}
	}
}

func formatFields(fields map[string]interface{}) string {
	s := ""
	for k, v := range fields {
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, v)
	}
	return s
}

// RedactCredential shows only the last 4 characters of a secret with
// explicit redaction markers.
func RedactCredential(secret string) string {
	if len(secret) <= 4 {
		return "[REDACTED]"
	}
	return fmt.Sprintf("[REDACTED-%s]", secret[len(secret)-4:])
}
