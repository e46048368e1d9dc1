package api

import (
	"log"
	"net/http"
	"strings"
)

// 5xx responses never include err.Error(): internal details (Redis
// addresses, provider payloads, file paths) stay in the server log and
// the client gets a generic message.

// respondSafeError logs the internal error and sends a sanitized JSON
// error response.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		log.Printf("ERROR [%d]: %s: %v", code, publicMsg, internalErr)
	}
	respondJSON(w, code, map[string]string{"error": publicMsg})
}

// safeErrorMessage maps common internal error patterns to public-safe
// messages. 4xx errors are about user input and pass through.
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	case strings.Contains(errStr, "redis"):
		return "A storage error occurred"

	case strings.Contains(errStr, "json") ||
		strings.Contains(errStr, "unmarshal") ||
		strings.Contains(errStr, "marshal") ||
		strings.Contains(errStr, "decode") ||
		strings.Contains(errStr, "parse"):
		return "Invalid request format"

	case strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "permission"):
		return "Access denied"

	default:
		return "An internal error occurred"
	}
}
