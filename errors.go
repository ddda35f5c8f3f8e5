package logging

import (
	stderrs "errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Op identifies the operation in which an error occurred, e.g. "logging.New".
type Op string

// DetailedError is the structured error type produced by this package. It
// carries the failing operation, an optional machine-readable code, a captured
// call stack and an optional cause. It participates in stdlib error chains via
// Unwrap.
type DetailedError struct {
	op      Op
	code    string
	message string
	cause   error
	stack   []string
}

func (e *DetailedError) Error() string {
	if e == nil {
		return emptyString
	}
	return e.message
}

// Op returns the operation identifier, or "" when unset.
func (e *DetailedError) Op() Op {
	if e == nil {
		return Op(emptyString)
	}
	return e.op
}

// Code returns the machine-readable code, or "" when unset.
func (e *DetailedError) Code() string {
	if e == nil {
		return emptyString
	}
	return e.code
}

// Cause returns the wrapped cause, or nil.
func (e *DetailedError) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Stack returns the call frames captured when the error was built, formatted
// as "func file:line", outermost call last.
func (e *DetailedError) Stack() []string {
	if e == nil {
		return nil
	}
	return e.stack
}

// Unwrap makes DetailedError compatible with errors.Is and errors.As.
func (e *DetailedError) Unwrap() error {
	return e.Cause()
}

// AsDetailedError reports whether err itself is a *DetailedError and returns
// it. Unlike errors.As it does not search the cause chain, so callers walking
// a chain see each link exactly once.
func AsDetailedError(err error) (*DetailedError, bool) {
	dErr, ok := err.(*DetailedError)
	return dErr, ok
}

// ErrorBuilder accumulates the parts of a DetailedError. Msg and Errorf
// finalize the builder and capture the stack.
type ErrorBuilder struct {
	err DetailedError
}

// newError starts building an error for the given operation.
func newError(op Op) *ErrorBuilder {
	return &ErrorBuilder{err: DetailedError{op: op}}
}

// Code sets a machine-readable error code.
func (b *ErrorBuilder) Code(code string) *ErrorBuilder {
	b.err.code = code
	return b
}

// Err sets the cause.
func (b *ErrorBuilder) Err(cause error) *ErrorBuilder {
	b.err.cause = cause
	return b
}

// Msg finalizes the builder with the given message.
func (b *ErrorBuilder) Msg(message string) error {
	b.err.message = message
	b.err.stack = captureStack(3)
	return &b.err
}

// Msgf finalizes the builder with a formatted message.
func (b *ErrorBuilder) Msgf(format string, args ...any) error {
	b.err.message = fmt.Sprintf(format, args...)
	b.err.stack = captureStack(3)
	return &b.err
}

// Errorf finalizes the builder with a formatted message. A %w verb wraps its
// argument as the cause, matching fmt.Errorf semantics.
func (b *ErrorBuilder) Errorf(format string, args ...any) error {
	wrapped := fmt.Errorf(format, args...)
	b.err.message = wrapped.Error()
	if b.err.cause == nil {
		b.err.cause = stderrs.Unwrap(wrapped)
	}
	b.err.stack = captureStack(3)
	return &b.err
}

// captureStack records up to 16 frames above the builder, skipping runtime
// internals.
func captureStack(skip int) []string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if frame.Function != emptyString && !strings.HasPrefix(frame.Function, "runtime.") {
			var sb strings.Builder
			sb.WriteString(frame.Function)
			sb.WriteByte(' ')
			sb.WriteString(frame.File)
			sb.WriteByte(':')
			sb.WriteString(strconv.Itoa(frame.Line))
			stack = append(stack, sb.String())
		}
		if !more {
			break
		}
	}
	return stack
}
