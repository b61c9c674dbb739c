package rewire

import (
	"fmt"

	"github.com/alphadose/haxmap"
)

// Registry is the concurrent binding registry: a read-mostly key -> binding
// map shared by every resolution chain. Lookup always returns the same
// *Binding pointer for a key, which is what the cycle scan compares.
type Registry struct {
	bindings *haxmap.Map[string, *Binding]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: haxmap.New[string, *Binding]()}
}

// Register adds a binding. Binding the same key twice is an error.
func (r *Registry) Register(b *Binding) error {
	if _, loaded := r.bindings.GetOrSet(b.key.id(), b); loaded {
		return fmt.Errorf("%w: %s", ErrDuplicateBinding, b.key)
	}
	return nil
}

// Lookup returns the binding for key, or ErrBindingNotFound.
func (r *Registry) Lookup(key Key) (*Binding, error) {
	b, ok := r.bindings.Get(key.id())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBindingNotFound, key)
	}
	return b, nil
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	return int(r.bindings.Len())
}
