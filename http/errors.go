// Package apihttp holds the API error taxonomy and the JSON response helpers
// shared by every controller.
package apihttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes an API error. The category decides whose fault the error
// is and which HTTP status the client sees.
type Type string

const (
	// Server The operation looked fine on paper, but something went wrong
	Server Type = "server"
	// Missing The thing you mentioned, whatever it is, just doesn't exist
	Missing Type = "missing"
	// User The operation was well-formed, but you asked for something that
	// can't happen at present (e.g., because the request failed validation)
	User Type = "user"
	// Forbidden The caller is known but not allowed to do this
	Forbidden Type = "forbidden"
	// Conflict The resource is held by someone else
	Conflict Type = "conflict"
)

// Error Representation of errors in the API.
type Error struct {
	Type Type
	// a message that can be printed out for the user
	Message string `json:"message"`
	// the underlying error that can be e.g., logged for developers to look at
	Err error
	// optional structured payload, e.g. the holder of a conflicting lock
	Details any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON Writes error as json
func (e *Error) MarshalJSON() ([]byte, error) {
	var errMsg string
	if e.Err != nil {
		errMsg = e.Err.Error()
	}
	jsonable := &struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Err     string `json:"error,omitempty"`
		Details any    `json:"details,omitempty"`
	}{
		Type:    string(e.Type),
		Message: e.Message,
		Err:     errMsg,
		Details: e.Details,
	}
	return json.Marshal(jsonable)
}

// UnexpectedError any unexpected error
func UnexpectedError(message string, underlyingError error) error {
	return &Error{
		Type:    Server,
		Err:     underlyingError,
		Message: message,
	}
}

// TypeMissingError indication of underlying type missing
func TypeMissingError(message string, underlyingError error) error {
	return &Error{
		Type:    Missing,
		Err:     underlyingError,
		Message: message,
	}
}

// ValidationError Used for indication of validation errors
func ValidationError(kind, message string) error {
	return &Error{
		Type:    User,
		Err:     fmt.Errorf("%s failed validation", kind),
		Message: message,
	}
}

// ForbiddenError the caller may not perform the operation
func ForbiddenError(message string) error {
	return &Error{
		Type:    Forbidden,
		Message: message,
	}
}

// ConflictError the resource is held by another party. details is returned to
// the client alongside the message.
func ConflictError(message string, details any) error {
	return &Error{
		Type:    Conflict,
		Message: message,
		Details: details,
	}
}

// CoverAllError Cover all other errors
func CoverAllError(err error) *Error {
	return &Error{
		Type:    User,
		Err:     err,
		Message: "Error: " + err.Error(),
	}
}

// StatusCode maps an error category to its HTTP status.
func StatusCode(err *Error) int {
	switch err.Type {
	case Missing:
		return http.StatusNotFound
	case User:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Server:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AsAPIError unwraps err to a typed *Error, covering everything else as a
// user error the way the old handlers did.
func AsAPIError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return CoverAllError(err)
}
