package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// SourceUnavailable is reported when the source root isn't an existing
// directory at the start of a cycle. The cycle continues as if the source
// were empty.
type SourceUnavailable struct {
	Path string
}

func (err SourceUnavailable) Error() string {
	return fmt.Sprintf("source folder %q not found", err.Path)
}

// DestinationCreateFailure is reported when the destination root doesn't
// exist and couldn't be created.
type DestinationCreateFailure struct {
	Path string
	Err  error
}

func (err DestinationCreateFailure) Error() string {
	return fmt.Sprintf("create destination folder %q: %s", err.Path, err.Err)
}

func (err DestinationCreateFailure) Unwrap() error {
	return err.Err
}

// EntryIOFailure is a failed filesystem operation on a single entry of a
// tree. It never aborts the walk that produced it.
type EntryIOFailure struct {
	// Op is the attempted action, e.g. "create", "update", "delete", "stat".
	Op   string
	Path string
	Err  error
}

func (err EntryIOFailure) Error() string {
	return fmt.Sprintf("%s %q: %s", err.Op, err.Path, err.Err)
}

func (err EntryIOFailure) Unwrap() error {
	return err.Err
}
