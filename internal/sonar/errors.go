// internal/sonar/errors.go - Upstream failure types
package sonar

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoEndpoint = errors.New("sonar endpoint is not configured")

// TransportError covers anything that kept a well-formed response from
// arriving: network failures, non-2xx statuses and undecodable bodies.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("sonar request failed: %s: %s", e.Status, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("sonar request failed: %s", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("sonar request failed: %v", e.Err)
	default:
		return "sonar request failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GraphQLError is one entry of a GraphQL errors array.
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// UpstreamError is returned when Sonar answered but reported errors.
type UpstreamError struct {
	Errors []GraphQLError
}

func (e *UpstreamError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		if ge.Message != "" {
			msgs = append(msgs, ge.Message)
		}
	}
	if len(msgs) == 0 {
		return "sonar returned errors"
	}
	return "sonar returned errors: " + strings.Join(msgs, "; ")
}

// IsTransportError reports whether err wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsUpstreamError reports whether err wraps an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
