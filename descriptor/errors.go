package descriptor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBuilderConsumed is returned by a PoolBuilder after Build.
var ErrBuilderConsumed = errors.New("descriptor: pool builder already built")

// ErrReleased is returned when writing through a released buffer.
var ErrReleased = errors.New("descriptor: buffer released")

// ConflictError reports two stages declaring the same binding, or the same
// push-constant block, with different structure.
type ConflictError struct {
	Set     uint32
	Binding uint32
	// Name is set for push-constant conflicts
	Name   string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("descriptor: push constant %q conflicts: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("descriptor: binding (%d,%d) conflicts: %s", e.Set, e.Binding, e.Reason)
}

// AllocationError wraps a Driver failure.
type AllocationError struct {
	Op  string
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("descriptor: %s: %v", e.Op, e.Err)
}

func (e *AllocationError) Cause() error  { return e.Err }
func (e *AllocationError) Unwrap() error { return e.Err }

// SizeMismatchError is returned when a write payload does not match the
// field size exactly.
type SizeMismatchError struct {
	Resource string
	Field    string
	Want     uint64
	Got      uint64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("descriptor: %s.%s is %d bytes, got %d", e.Resource, e.Field, e.Want, e.Got)
}

// UnknownFieldError is returned for a write to a field the resource does
// not declare.
type UnknownFieldError struct {
	Resource string
	Field    string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("descriptor: %s has no field %q", e.Resource, e.Field)
}
