package image

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrNotOwner        = errors.New("you do not own this image")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError carries field-level messages keyed by form field name.
type ValidationError struct {
	Fields   map[string]string
	tooLarge bool
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TooLargeOnly reports whether the file size is the only problem.
func (e *ValidationError) TooLargeOnly() bool {
	return e.tooLarge && len(e.Fields) == 1
}

// StorageError wraps a failed binary write or read. Nothing was committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
