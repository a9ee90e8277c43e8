package opal

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the caller cancelled the transfer. It is not
// a failure of the remote service and batch loops treat it as an early
// return.
var ErrAborted = errors.New("transfer aborted")

// RemoteServiceError reports a transport failure or a non-2xx response.
// Status is zero when no response was received.
type RemoteServiceError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("opal %s %s: %s", e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("opal %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
}

// MalformedResponseError reports an empty or unparsable response body.
type MalformedResponseError struct {
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.URL, e.Reason)
}

// IsAborted reports whether err stems from a caller-initiated abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
