package kernel

import (
	"errors"
	"fmt"
)

// ErrTooComplex is returned by a kernel that refuses an operation because
// the operands exceed its working budget.
var ErrTooComplex = errors.New("mesh too complex for boolean operation")

// GeometryError reports geometry that lacks usable vertex or index data.
type GeometryError struct {
	Stage  string // condition, validate, bake, ...
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s: %s", e.Stage, e.Reason)
}
