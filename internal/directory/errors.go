package directory

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetworkFailure means the request could not be sent or no response arrived
	ErrNetworkFailure = errors.New("network failure")

	// ErrAuthRejected means the backend refused the credential (401 or 403)
	ErrAuthRejected = errors.New("authorization rejected")

	// ErrMissingCredential means no credential was available to build the request
	ErrMissingCredential = errors.New("missing credential")

	// ErrRenameFailed means the backend did not accept a rename
	ErrRenameFailed = errors.New("rename failed")

	// ErrUnexpectedStatus means the backend answered with a non-success status
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrDecode means a success response carried a body that could not be decoded
	ErrDecode = errors.New("failed to decode response")
)

// StatusError describes a non-success HTTP response
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
}

// Is reports 401 and 403 responses as ErrAuthRejected and every status as ErrUnexpectedStatus
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrAuthRejected:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrUnexpectedStatus:
		return true
	}
	return false
}
