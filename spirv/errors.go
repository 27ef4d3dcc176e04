package spirv

import (
	"fmt"
)

// ReflectionError reports a module that cannot be reflected: it is
// malformed, declares an unsupported execution model, or declares a
// resource whose type has no descriptor equivalent. No partial result is
// ever returned alongside a ReflectionError.
type ReflectionError struct {
	// ID is the result id the failure relates to, zero if none
	ID     uint32
	Reason string
}

func (e *ReflectionError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("spirv: %s (id %%%d)", e.Reason, e.ID)
	}
	return "spirv: " + e.Reason
}

func reflectErrorf(id uint32, format string, args ...interface{}) error {
	return &ReflectionError{ID: id, Reason: fmt.Sprintf(format, args...)}
}
