package content

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrNotFound is matched by every error reporting that the watched file
	// could not be read.
	ErrNotFound = errors.New("mermaid file not found")

	// ErrIsDirectory is returned when the watched path names a directory.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrUnstable is returned when the file kept changing while it was read.
	ErrUnstable = errors.New("file changed while reading")
)

// NotFoundError reports that the watched file is missing or unreadable.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err == nil || errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("Mermaid file not found: %s", e.Path)
	}

	return fmt.Sprintf("Mermaid file not readable: %s: %s", e.Path, causeText(e.Err))
}

// Unwrap exposes both ErrNotFound and the underlying cause.
func (e *NotFoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}

	return []error{ErrNotFound, e.Err}
}

// causeText strips the path from *fs.PathError so the path is not repeated.
func causeText(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}

	return err.Error()
}
