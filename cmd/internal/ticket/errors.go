package ticket

import (
	"errors"
	"fmt"
)

// ErrNotFound is the kind for a ticket id that is out of range or already deleted.
var ErrNotFound = errors.New("ticket not found")

// NotFoundError reports the id that could not be found.
type NotFoundError struct {
	ID uint64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%v: id %d", ErrNotFound, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
