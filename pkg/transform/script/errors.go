package script

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized = errors.New("script: stage not initialized")
	ErrInterrupted    = errors.New("script: evaluation interrupted")
	ErrUnknownColumn  = errors.New("script: unknown input column")
)

// SyntaxError reports source that does not compile. It is fatal for the stage.
type SyntaxError struct {
	Message string
	Err     error
}

func (e *SyntaxError) Error() string { return "script: syntax error: " + e.Message }
func (e *SyntaxError) Unwrap() error { return e.Err }

// RuntimeError reports a failed evaluation of one row. It covers thrown
// exceptions, interruptions and panics raised by host bindings.
type RuntimeError struct {
	RowID   int64
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("script: row %d: %s", e.RowID, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Interrupted reports whether the evaluation was stopped by a timeout or a
// cancelled context rather than by the script itself.
func (e *RuntimeError) Interrupted() bool { return errors.Is(e.Err, ErrInterrupted) }
