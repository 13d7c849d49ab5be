package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. The set is closed: callers branch on
// the kind, never on the message text.
type Kind int

const (
	KindInternal Kind = iota
	KindPrecondition
	KindValidation
	KindNotFound
	KindMethodNotAllowed
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to the HTTP status used at the boundary.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindPrecondition, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors

func Precondition(message string) *AppError {
	return &AppError{Kind: KindPrecondition, Message: message}
}

func Validation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func MethodNotAllowed(message string) *AppError {
	return &AppError{Kind: KindMethodNotAllowed, Message: message}
}

func Upstream(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As is a shorthand for errors.As with an *AppError target.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

func IsPrecondition(err error) bool { return err != nil && KindOf(err) == KindPrecondition }

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

func IsUpstream(err error) bool { return err != nil && KindOf(err) == KindUpstream }
