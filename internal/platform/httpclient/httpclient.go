package httpclient

import (
	"net/http"
	"time"
)

// New builds an HTTP client with sane defaults for this project. Timeout is
// the only retry/backoff policy the client layer carries; anything smarter
// belongs to the transport, not the sync core.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
