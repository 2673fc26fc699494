package site

import (
	"errors"
	"fmt"
)

// ErrCannotWriteDestinationFile is returned when a built page cannot be
// written.
var ErrCannotWriteDestinationFile = errors.New("cannot write destination file")

// BuildError is a failure to build or copy one source file.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// InvariantError reports unbalanced stacks. It is a bug, never a property of
// the input, so keep-going does not apply to it.
type InvariantError struct {
	What string
	Want int
	Got  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s: want %d, got %d", e.What, e.Want, e.Got)
}
