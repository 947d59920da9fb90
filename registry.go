package gentest

import (
	"fmt"

	"github.com/tempusfrangit/go-gentest/idl"
)

// Registry maps each type to the name of its generated initializer. A type
// is registered once, before or right after its initializer is emitted,
// and every later reference calls that function.
type Registry struct {
	names map[idl.Type]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[idl.Type]string)}
}

// Register records fn as the initializer of t.
func (r *Registry) Register(t idl.Type, fn string) error {
	if prev, ok := r.names[t]; ok {
		return fmt.Errorf("%w: %s already uses %s", ErrRegistered, idl.Describe(t), prev)
	}
	r.names[t] = fn
	return nil
}

// Lookup returns the initializer registered for t.
func (r *Registry) Lookup(t idl.Type) (string, bool) {
	fn, ok := r.names[t]
	return fn, ok
}

func (r *Registry) Len() int { return len(r.names) }
