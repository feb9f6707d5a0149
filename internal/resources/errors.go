package resources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// NotFoundError marks the absence of a remote resource. The workflows rely on
// this signal to decide between skipping a step and aborting with rollback.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Name)
}

func notFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

// IsNotFound reports whether err signals a missing remote resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// isAWSNotFound matches the not-found shapes of the AWS APIs this package
// calls. The service SDKs are not uniform here: some raise typed exceptions,
// some only expose an error code.
func isAWSNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	switch {
	case strings.Contains(code, "NotFound"),
		strings.Contains(code, "DoesNotExist"),
		strings.Contains(code, "NoSuch"):
		return true
	}
	return false
}

// wrapAWSErr translates AWS not-found conditions for one resource and keeps
// everything else intact, annotated with the failing operation.
func wrapAWSErr(err error, op, kind, name string) error {
	if err == nil {
		return nil
	}
	if isAWSNotFound(err) {
		return notFound(kind, name)
	}
	return fmt.Errorf("%s %s %s: %w", op, kind, name, err)
}
