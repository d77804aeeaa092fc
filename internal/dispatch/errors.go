package dispatch

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindUnauthenticated: a required credential was missing; no call was made.
	KindUnauthenticated Kind = iota + 1
	// KindTransport: no response (network error, timeout).
	KindTransport
	// KindServer: the API answered with a non-2xx status.
	KindServer
	// KindCredentials: the credential store failed; no call was made.
	KindCredentials
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindCredentials:
		return "credentials"
	default:
		return "unknown"
	}
}

// Error is the normalized failure handed to OnFailure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether the failure must sign the console out.
func (e *Error) IsAuth() bool {
	return e.Kind == KindUnauthenticated || e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

const fallbackMessage = "Something went wrong. Please try again."

// messagePaths are tried in order against an error body.
var messagePaths = []string{"error.message", "message", "error", "detail", "title"}

func messageFromBody(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, p := range messagePaths {
			r := gjson.GetBytes(body, p)
			if r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
				return r.Str
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") && !strings.HasPrefix(text, "{") {
		return text
	}
	return fallbackMessage
}
