package contact

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared rate limit key for requests that carry no
// proxy address headers.
const UnknownClient = "unknown"

// ClientID identifies the submitter for rate limiting: the first
// X-Forwarded-For entry, then X-Real-IP.
func ClientID(request *http.Request) string {
	forwardedFor := strings.TrimSpace(strings.Split(request.Header.Get("X-Forwarded-For"), ",")[0])
	if forwardedFor != "" {
		return forwardedFor
	}

	realIP := strings.TrimSpace(request.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	return UnknownClient
}
