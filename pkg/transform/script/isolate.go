package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ExecutionLog receives one message per failed row.
type ExecutionLog interface {
	Publish(message string)
}

// SlogExecutionLog publishes messages as warnings on a structured logger.
type SlogExecutionLog struct {
	Logger *slog.Logger
}

func (l SlogExecutionLog) Publish(message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn(message)
}

// ExecutionLogFunc adapts a function to ExecutionLog.
type ExecutionLogFunc func(message string)

func (f ExecutionLogFunc) Publish(message string) { f(message) }

// Isolator turns a failed row evaluation into a null value and an
// execution-log message so the remaining rows keep running.
type Isolator struct {
	Log ExecutionLog
}

// Run evaluates fn for rowID and never fails.
func (iso *Isolator) Run(ctx context.Context, rowID int64, fn func(context.Context) (Value, error)) Value {
	v, _ := iso.Try(ctx, rowID, fn)
	return v
}

// Try is Run that also returns the failure after publishing it.
func (iso *Isolator) Try(ctx context.Context, rowID int64, fn func(context.Context) (Value, error)) (Value, error) {
	v, err := guard(ctx, rowID, fn)
	if err == nil {
		return v, nil
	}
	reason := err.Error()
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		reason = rerr.Message
	}
	if iso.Log != nil {
		iso.Log.Publish(fmt.Sprintf("Error occurred while transforming row %d: %s", rowID, reason))
	}
	return Null(), err
}

func guard(ctx context.Context, rowID int64, fn func(context.Context) (Value, error)) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic: %v", r)
			v, err = Null(), &RuntimeError{RowID: rowID, Message: perr.Error(), Err: perr}
		}
	}()
	return fn(ctx)
}
