package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a history entry does not exist
	ErrNotFound = errors.New("history entry not found")
	// ErrRateLimited is returned when the remote scorer is over its request budget
	ErrRateLimited = errors.New("remote scorer rate limit exceeded")
)

// FormatError is returned when remote model output cannot be validated
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response format from API: %s: %v", e.Reason, e.Err)
	}
	return "invalid response format from API: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure talking to the remote scorer
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedLinkError is produced for a link that cannot be parsed as an absolute URL
type MalformedLinkError struct {
	Link string
	Err  error
}

func (e *MalformedLinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed link %q: %v", e.Link, e.Err)
	}
	return fmt.Sprintf("malformed link %q", e.Link)
}

func (e *MalformedLinkError) Unwrap() error {
	return e.Err
}

// TelemetryError wraps a failed dashboard hand-off
type TelemetryError struct {
	Err error
}

func (e *TelemetryError) Error() string {
	return "telemetry publish failed: " + e.Err.Error()
}

func (e *TelemetryError) Unwrap() error {
	return e.Err
}
