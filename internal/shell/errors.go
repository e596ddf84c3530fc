package shell

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is the cause of the error returned when a command
	// name has no registered handler.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInterpreterClosed is returned by every operation on a closed interpreter.
	ErrInterpreterClosed = errors.New("interpreter is closed")
)

// CommandExecutionError is the single error kind for user-facing command
// failures. Cause holds the collaborator error, if any.
type CommandExecutionError struct {
	Message string
	Cause   error
}

func (e *CommandExecutionError) Error() string {
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "" || e.Message == e.Cause.Error():
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}

func (e *CommandExecutionError) Unwrap() error {
	return e.Cause
}

func executionErrorf(format string, args ...any) *CommandExecutionError {
	return &CommandExecutionError{Message: fmt.Sprintf(format, args...)}
}

func wrapExecutionError(cause error, format string, args ...any) *CommandExecutionError {
	return &CommandExecutionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// asExecutionError passes CommandExecutionErrors through and wraps anything
// else, keeping the original message.
func asExecutionError(err error) error {
	if err == nil {
		return nil
	}
	var cee *CommandExecutionError
	if errors.As(err, &cee) {
		return err
	}
	return &CommandExecutionError{Message: err.Error(), Cause: err}
}

// ParseError reports malformed command text. Line and Column are 1-based.
type ParseError struct {
	Line    int
	Column  int
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
