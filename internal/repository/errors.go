package repository

import (
	"errors"
	"fmt"
)

// Kinds of WriteError. Match with errors.Is.
var (
	ErrMissingKeyColumns = errors.New("key columns must be provided for upsert mode")
	ErrInvalidBatch      = errors.New("invalid write batch")
	ErrDB                = errors.New("database error")
)

// WriteError reports a batch that was not committed. Nothing from the batch
// is persisted when it is returned.
type WriteError struct {
	Kind  error
	Table string
	Mode  WriteMode
	Err   error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("failed to %s into '%s': %v", e.Mode, e.Table, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *WriteError) Is(target error) bool { return target == e.Kind }
