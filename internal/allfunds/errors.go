package allfunds

import (
	"errors"
	"fmt"
)

// Kinds of FetchError. Match with errors.Is.
var (
	ErrInvalidISIN    = errors.New("invalid ISIN")
	ErrHTTPStatus     = errors.New("unexpected HTTP status")
	ErrUpstreamStatus = errors.New("upstream reported failure")
	ErrTransport      = errors.New("request failed")
	ErrDecodeResponse = errors.New("failed to decode response")
)

// FetchError describes a failed call to the fund API.
type FetchError struct {
	Kind       error
	Endpoint   string
	ISIN       string
	StatusCode int    // set for ErrHTTPStatus
	Status     string // upstream status field, set for ErrUpstreamStatus
	Err        error
}

func (e *FetchError) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Kind == ErrHTTPStatus:
		msg = fmt.Sprintf("API returned status %d", e.StatusCode)
	case e.Kind == ErrUpstreamStatus:
		msg = fmt.Sprintf("API returned status field %q", e.Status)
	}
	if e.ISIN != "" {
		msg = fmt.Sprintf("%s (isin %s)", msg, e.ISIN)
	}
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s: %s", e.Endpoint, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *FetchError) Is(target error) bool { return target == e.Kind }
