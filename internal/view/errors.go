package view

import (
	"errors"
	"fmt"
)

// ErrViewNotInitialized is returned by LoadBook before CreateView.
var ErrViewNotInitialized = errors.New("view not initialized")

// LoadError reports a book that could not be fetched or opened. Status is
// set for HTTP responses outside 2xx; Err for everything else.
type LoadError struct {
	Path   string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("book not found: %d", e.Status)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
