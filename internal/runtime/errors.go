package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrRuntime       = errors.New("runtime error")
	ErrEmptyIndex    = errors.New("empty image index")
	ErrCommandFailed = errors.New("command failed")
	ErrPull          = errors.New("image pull failed")
	ErrPush          = errors.New("image push failed")
)

// Wraps err with [ErrRuntime].
func wrapRuntime(err error) error {
	return fmt.Errorf("%w: %w", ErrRuntime, err)
}
