package database

import (
	"errors"
	"fmt"
)

// Kinds of PoolError. Match with errors.Is.
var (
	ErrConnectFailed          = errors.New("failed to connect to database")
	ErrExhaustedOrUnreachable = errors.New("no database connection available")
)

// PoolError reports a connection pool that could not be built or drawn from.
type PoolError struct {
	Kind     error
	Database string
	Err      error
}

func (e *PoolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (database %s)", e.Kind, e.Database)
	}
	return fmt.Sprintf("%v (database %s): %v", e.Kind, e.Database, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *PoolError) Is(target error) bool { return target == e.Kind }
