// Package apperror is the error shape shared by the data-access and API
// layers: a kind, an HTTP-equivalent status code and a client-facing message.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindStorageFault Kind = "storage_fault"
	KindTooLarge     Kind = "too_large"
)

type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: http.StatusBadRequest, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: http.StatusNotFound, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: http.StatusUnauthorized, Message: msg}
}

func TooLarge(msg string) *Error {
	return &Error{Kind: KindTooLarge, Code: http.StatusRequestEntityTooLarge, Message: msg}
}

// StorageFault carries the raw store message in Message; clients see it.
func StorageFault(msg string, err error) *Error {
	if err != nil {
		msg = fmt.Sprintf("%s. Error: %s", msg, err.Error())
	}
	return &Error{Kind: KindStorageFault, Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// From converts any error into an *Error. Unknown errors become storage faults.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return StorageFault("Unexpected error", err)
}

func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
