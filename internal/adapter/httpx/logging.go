package httpx

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// MaxLoggedBodyLength is the maximum length of an upstream response
	// body to include in logs. Bodies longer than this are truncated to
	// keep diff text and comment content out of log aggregators.
	MaxLoggedBodyLength = 200
)

// TruncateForLogging safely truncates a response body for logging.
// Returns the first MaxLoggedBodyLength characters plus a truncation
// indicator if truncated.
func TruncateForLogging(body string) string {
	if len(body) <= MaxLoggedBodyLength {
		return body
	}
	return body[:MaxLoggedBodyLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(body))
}

// ErrorLogMessage renders an error for log output: URL secrets redacted,
// and for typed errors the upstream body appended, truncated to
// MaxLoggedBodyLength. Diff text and comment content can show up in error
// bodies, so the full body never reaches the log.
func ErrorLogMessage(err error) string {
	msg := RedactURLSecrets(err.Error())
	var typed *Error
	if errors.As(err, &typed) && typed.Body != "" {
		msg += " body=" + TruncateForLogging(RedactURLSecrets(typed.Body))
	}
	return msg
}

var secretParamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(access_token)=([^&"\s]+)`),
	regexp.MustCompile(`(token)=([^&"\s]+)`),
	regexp.MustCompile(`(key)=([^&"\s]+)`),
}

// RedactURLSecrets redacts credential-bearing query parameters from URLs
// in error messages and log lines.
//
// Example:
//
//	input:  "https://api.bitbucket.org/2.0/repositories?access_token=abc123"
//	output: "https://api.bitbucket.org/2.0/repositories?access_token=[REDACTED]"
func RedactURLSecrets(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, re := range secretParamPatterns {
		result = re.ReplaceAllString(result, "$1=[REDACTED]")
	}
	return result
}
