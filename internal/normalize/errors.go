package normalize

import (
	"errors"
	"fmt"
)

// ErrMissingField is the kind of every NormalizeError raised for an absent key.
var ErrMissingField = errors.New("missing field")

// NormalizeError reports a payload that lacks an expected key or carries
// a value of the wrong type. Field is the dotted path from the payload root.
type NormalizeError struct {
	Kind  error
	Field string
	ISIN  string
	Err   error
}

func (e *NormalizeError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Field)
	if e.ISIN != "" {
		msg += " (isin " + e.ISIN + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NormalizeError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *NormalizeError) Is(target error) bool { return target == e.Kind }

// ErrInvalidValue marks a present key whose value cannot be converted.
var ErrInvalidValue = errors.New("invalid value")

func missing(field string) error {
	return &NormalizeError{Kind: ErrMissingField, Field: field}
}

func invalid(field string, err error) error {
	return &NormalizeError{Kind: ErrInvalidValue, Field: field, Err: err}
}

// withISIN tags a NormalizeError with the ISIN it was raised for.
func withISIN(err error, isin string) error {
	var ne *NormalizeError
	if errors.As(err, &ne) && ne.ISIN == "" {
		ne.ISIN = isin
	}
	return err
}
