package remote

import (
	"errors"
	"fmt"

	"github.com/harrisonrobin/tasksync/pkg/model"
)

// ErrNotFound is returned when a mutation targets a task that no longer exists
// upstream.
var ErrNotFound = errors.New("remote task not found")

// AuthError reports an invalid credential. It is fatal to the process.
type AuthError struct {
	Service model.Source
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("invalid %s API token", e.Service)
}

// ConfigError reports an invalid target collection identifier. It is fatal to
// the process.
type ConfigError struct {
	Service model.Source
	Detail  string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid %s configuration", e.Service)
	}
	return fmt.Sprintf("invalid %s configuration: %s", e.Service, e.Detail)
}

// StatusError is any other non-2xx answer from a remote.
type StatusError struct {
	Service model.Source
	Op      string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Service, e.Op, e.Code, e.Body)
}

// IsFatal reports whether err must stop the process instead of waiting for the
// next cycle.
func IsFatal(err error) bool {
	var authErr *AuthError
	var cfgErr *ConfigError
	return errors.As(err, &authErr) || errors.As(err, &cfgErr)
}

// IsNotFound reports whether err means the target is already gone upstream.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
