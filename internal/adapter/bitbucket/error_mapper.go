package bitbucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
)

// mapHTTPError maps Bitbucket API HTTP status codes to a typed
// httpx.Error. The raw body is always carried along verbatim because
// Bitbucket's error detail (permission problems, malformed inline
// anchors) is what the caller needs to diagnose a failed write.
func mapHTTPError(operation string, statusCode int, body []byte) *httpx.Error {
	message := parseErrorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return httpx.NewAuthenticationError(operation, message, statusCode, string(body))

	case http.StatusNotFound:
		return httpx.NewNotFoundError(operation, message, string(body))

	default:
		return httpx.NewUpstreamError(operation, message, statusCode, string(body))
	}
}

// mapTransportError classifies a failure that produced no HTTP response.
// Only exceeded deadlines keep the timeout type; anything else (DNS
// resolution, refused connection, closed socket) has nothing to do with
// time and is reported as unknown.
func mapTransportError(operation string, err error) *httpx.Error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return httpx.NewTimeoutError(operation, err.Error())
	}
	return httpx.NewUnknownError(operation, err.Error())
}

// parseErrorMessage extracts a user-friendly message from Bitbucket's
// error body, falling back to a body preview for non-JSON responses.
func parseErrorMessage(statusCode int, body []byte) string {
	var errResp apiError
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		preview := strings.TrimSpace(string(body))
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		if preview == "" {
			return fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode))
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
	}

	if errResp.Error.Detail != "" {
		return fmt.Sprintf("%s: %s", errResp.Error.Message, errResp.Error.Detail)
	}
	return errResp.Error.Message
}
