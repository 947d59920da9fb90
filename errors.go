package gentest

import (
	"errors"
	"fmt"
)

// Generation errors. Every failure is fatal to the run; callers match on
// these with errors.Is.
var (
	ErrStructural      = errors.New("structural schema violation")
	ErrUnsupportedType = errors.New("unsupported type")
	ErrRegistered      = errors.New("generator already registered")
)

// StructuralError reports a type reached in a position where it cannot be
// initialized, such as a keyed union with no enclosing struct.
type StructuralError struct {
	Type   string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// UnsupportedTypeError reports a type the walker has no rule for.
type UnsupportedTypeError struct {
	Type string
	// Handcoded is set when the type has a boilerplate initializer that was
	// never registered.
	Handcoded bool
}

func (e *UnsupportedTypeError) Error() string {
	if e.Handcoded {
		return fmt.Sprintf("no registered initializer for hand-coded type %s", e.Type)
	}
	return fmt.Sprintf("cannot randomly initialize %s", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }
