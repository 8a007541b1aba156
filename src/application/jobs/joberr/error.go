package joberr

import (
	"errors"
	"fmt"
)

// Kind tags a job failure so the router boundary can shape the
// structured error result without string matching.
type Kind string

const (
	ValidationKind       Kind = "validation"
	ModelLoadKind        Kind = "model_load"
	StageOutputKind      Kind = "stage_output"
	UploadKind           Kind = "upload"
	UnknownOperationKind Kind = "unknown_operation"
	InternalKind         Kind = "internal"
)

var _ error = Error{}
var _ interface{ Unwrap() error } = Error{}

// Error carries the short category line that becomes the "error" field
// of the job result, plus the underlying cause for the "message" field.
type Error struct {
	Kind  Kind
	Title string
	Cause error
}

func New(kind Kind, title string, cause error) Error {
	return Error{
		Kind:  kind,
		Title: title,
		Cause: cause,
	}
}

func (e Error) Error() string {
	if e.Cause == nil {
		return e.Title
	}

	return fmt.Sprintf("%s: %s", e.Title, e.Cause.Error())
}

func (e Error) Unwrap() error {
	return e.Cause
}

// Detail is the human readable explanation behind the category line.
func (e Error) Detail() string {
	if e.Cause == nil {
		return e.Title
	}

	return e.Cause.Error()
}

func As(err error) (Error, bool) {
	jobErr := Error{}
	ok := errors.As(err, &jobErr)
	return jobErr, ok
}
