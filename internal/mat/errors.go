package mat

import (
	"errors"
	"fmt"
)

var (
	// ErrArgument reports invalid offsets, extents or construction input.
	// Nothing has been scheduled when it is returned.
	ErrArgument = errors.New("mat: invalid argument")

	// ErrShapeMismatch reports destination and source shapes that disagree at
	// assignment time. The launch does not happen.
	ErrShapeMismatch = errors.New("mat: shape mismatch")

	// ErrConstraint reports an operand combination no strategy supports. It
	// depends only on static descriptors (storage kinds, argument ops, static
	// sizes, element type), never on runtime values, so the same call site
	// always fails the same way.
	ErrConstraint = errors.New("mat: unsupported operand combination")
)

func argumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrArgument, fmt.Sprintf(format, args...))
}

func shapeMismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

// ConstraintError carries the dispatch key that could not be served.
type ConstraintError struct {
	Key    Key
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("mat: unsupported operand combination %s: %s", e.Key, e.Reason)
}

func (e *ConstraintError) Unwrap() error {
	return ErrConstraint
}
