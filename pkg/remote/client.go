package remote

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/harrisonrobin/tasksync/pkg/model"
)

// NewClient returns a resty client for one remote. httpClient is expected to
// carry the credentials (see auth.NewHTTPClient). Retries stay disabled: a
// failed call aborts the pass and the next cycle is the retry.
func NewClient(httpClient *http.Client, baseURL string, timeout time.Duration) *resty.Client {
	client := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

// CheckResponse maps a response to the error taxonomy. 401 and 403 become an
// AuthError, 404 wraps ErrNotFound, anything else >= 400 a StatusError.
func CheckResponse(service model.Source, op string, resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code < 400:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Service: service}
	case code == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", service, op, ErrNotFound)
	default:
		return &StatusError{Service: service, Op: op, Code: code, Body: truncate(resp.String(), 200)}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
