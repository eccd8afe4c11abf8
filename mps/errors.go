package mps

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("mps: shape mismatch")

	// ErrUnsupportedSize is matched by every *UnsupportedSizeError.
	ErrUnsupportedSize = errors.New("mps: unsupported size")

	// ErrInvalidShape is returned when a core or classifier is constructed
	// with a non-positive dimension.
	ErrInvalidShape = errors.New("mps: invalid shape")
)

// ShapeMismatchError reports input that does not fit the classifier's
// geometry. What names the offending quantity, e.g. "len(inputs)" or
// "dim(inputs[2])".
type ShapeMismatchError struct {
	What string
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("mps: %s = %d, but needs to be %d", e.What, e.Got, e.Want)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// UnsupportedSizeError reports a chain length that is not a power of two.
type UnsupportedSizeError struct {
	Size int
}

func (e *UnsupportedSizeError) Error() string {
	return fmt.Sprintf("mps: size %d is not a power of two", e.Size)
}

func (e *UnsupportedSizeError) Unwrap() error { return ErrUnsupportedSize }
