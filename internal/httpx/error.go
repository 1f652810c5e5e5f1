package httpx

import (
	"fmt"
	"net/http"
	"strings"
)

const maxErrorBody = 256

// HTTPError is a response with status >= 400. The body is kept verbatim so
// callers can decode service-specific error envelopes.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("httpx: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Retryable reports throttling, request timeouts and server-side failures.
// 501 Not Implemented is permanent.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	case http.StatusNotImplemented:
		return false
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}
