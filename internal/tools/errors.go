package tools

import "fmt"

// Kind classifies tool errors so callers can react without string matching.
type Kind string

const (
	// KindValidation marks malformed or rejected arguments.
	KindValidation Kind = "validation"
	// KindPermission marks calls denied by the permission rules or the user.
	KindPermission Kind = "permission"
	// KindExecution marks failures while running an accepted call.
	KindExecution Kind = "execution"
	// KindNotFound marks calls naming a tool that is not registered.
	KindNotFound Kind = "not_found"
)

// Error is the error type returned by the registry, dispatcher, and tools.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindExecution for errors that did not
// come from this package.
func KindOf(err error) Kind {
	if te, ok := err.(*Error); ok {
		return te.Kind
	}
	return KindExecution
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Permissionf builds a KindPermission error.
func Permissionf(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

// Executionf builds a KindExecution error.
func Executionf(format string, args ...any) *Error {
	return &Error{Kind: KindExecution, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// WrapExecution wraps err as a KindExecution error with a message prefix.
func WrapExecution(err error, format string, args ...any) *Error {
	return &Error{Kind: KindExecution, Message: fmt.Sprintf(format, args...), Err: err}
}
