package provision

import (
	"errors"
	"fmt"
)

// ErrConnectFailed is the kind of a SchemaError raised when the root account
// cannot reach the server, or loses the connection mid-script.
var ErrConnectFailed = errors.New("failed to connect as root")

// SchemaError reports a schema provisioning failure.
type SchemaError struct {
	Kind     error
	Database string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (database %s)", e.Kind, e.Database)
	}
	return fmt.Sprintf("%v (database %s): %v", e.Kind, e.Database, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *SchemaError) Is(target error) bool { return target == e.Kind }

// Kinds of ProvisionError.
var (
	ErrUnknownRole = errors.New("unknown role")
	ErrStageFailed = errors.New("provisioning stage failed")
)

// Stage names a step of account provisioning.
type Stage string

const (
	StageConnect Stage = "connect"
	StageDrop    Stage = "drop"
	StageCreate  Stage = "create"
	StageGrant   Stage = "grant"
	StageApply   Stage = "apply"
	StageVerify  Stage = "verify"
)

// ProvisionError reports a failed account provisioning step. Grants from a
// failed call are not assumed to be in effect; provisioning is safe to re-run.
type ProvisionError struct {
	Kind     error
	Stage    Stage
	Username string
	Err      error
}

func (e *ProvisionError) Error() string {
	msg := fmt.Sprintf("error provisioning user '%s'", e.Username)
	if e.Kind == ErrUnknownRole {
		msg += ": " + e.Kind.Error()
	} else {
		msg += fmt.Sprintf(" at stage %s", e.Stage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind.
func (e *ProvisionError) Is(target error) bool { return target == e.Kind }
