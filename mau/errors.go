package mau

import (
	"errors"
	"fmt"
)

// ErrFatal marks programming errors against the fixed hardware topology:
// bad indices, backwards next tables, unrecoverable overflow. The
// evaluation that returned it must be abandoned.
var ErrFatal = errors.New("fatal")

func fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrFatal}, args...)...)
}
