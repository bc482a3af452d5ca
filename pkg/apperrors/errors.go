package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the application failure type shared by the repository and
// service layers. Code is machine-readable, Status is the HTTP status a
// transport layer should respond with.
type Error struct {
	Message string
	Code    string
	Status  int
}

func (e *Error) Error() string { return e.Message }

const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
)

func Validation(msg string) *Error {
	return &Error{Message: msg, Code: CodeValidation, Status: http.StatusBadRequest}
}

func Authentication(msg string) *Error {
	if msg == "" {
		msg = "authentication failed"
	}
	return &Error{Message: msg, Code: CodeAuthentication, Status: http.StatusUnauthorized}
}

func Authorization(msg string) *Error {
	if msg == "" {
		msg = "access denied"
	}
	return &Error{Message: msg, Code: CodeAuthorization, Status: http.StatusForbidden}
}

// NotFound takes the resource name, not a full message.
func NotFound(resource string) *Error {
	return &Error{Message: resource + " not found", Code: CodeNotFound, Status: http.StatusNotFound}
}

func NotFoundID(resource, id string) *Error {
	return &Error{
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
	}
}

func Conflict(msg string) *Error {
	return &Error{Message: msg, Code: CodeConflict, Status: http.StatusConflict}
}

// IsCode reports whether err is an *Error carrying the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

func IsValidation(err error) bool     { return IsCode(err, CodeValidation) }
func IsAuthentication(err error) bool { return IsCode(err, CodeAuthentication) }
func IsNotFound(err error) bool       { return IsCode(err, CodeNotFound) }
func IsConflict(err error) bool       { return IsCode(err, CodeConflict) }

// StatusOf returns the HTTP status for err, defaulting to 500 for
// anything that is not an *Error.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
