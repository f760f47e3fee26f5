package csg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/kernel"
)

// ErrInvalidOperands is returned when either operand index is absent,
// out of range, or both name the same model.
var ErrInvalidOperands = errors.New("csg: two distinct models are required")

// Class says why a boolean operation could not be completed.
type Class int

const (
	NonManifold Class = iota
	NonOverlapping
	TooComplex
)

func (c Class) String() string {
	switch c {
	case NonManifold:
		return "non-manifold"
	case NonOverlapping:
		return "non-overlapping"
	case TooComplex:
		return "too-complex"
	default:
		return "unknown"
	}
}

// Attempt records one failed strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// OperationError is returned when every strategy failed or the produced
// geometry did not validate.
type OperationError struct {
	Op        kernel.Op
	Primary   string // operand names
	Secondary string
	Class     Class
	Attempts  []Attempt
}

func (e *OperationError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return fmt.Sprintf("csg: %s of %q and %q failed (%s): %s",
		e.Op, e.Primary, e.Secondary, e.Class, strings.Join(reasons, "; "))
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *OperationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Message returns text suitable for showing to the user.
func (e *OperationError) Message() string {
	switch e.Class {
	case NonOverlapping:
		return fmt.Sprintf("%s and %s do not overlap. Move them so they touch before trying %s again.",
			e.Primary, e.Secondary, e.Op)
	case TooComplex:
		return fmt.Sprintf("%s and %s have too many triangles for %s. Try simplifying or scaling down the models.",
			e.Primary, e.Secondary, e.Op)
	default:
		return fmt.Sprintf("Could not %s %s and %s. One of the meshes may have holes or self-intersections; try repairing it before combining.",
			e.Op, e.Primary, e.Secondary)
	}
}
