package rewire

import (
	"context"
)

// Provider constructs a value. Dependencies are resolved through res, which
// re-enters the engine as a subcontext of the binding being constructed.
type Provider func(ctx context.Context, res *Resolution) (any, error)

// Binding is a registered factory capable of producing a value for a key.
// Bindings are owned by the registry and never mutated after registration;
// cycle detection relies on their pointer identity.
type Binding struct {
	key           Key
	provider      Provider
	scope         Scope
	injectMembers bool
	destroy       func(value any)
}

// Key returns the key this binding satisfies.
func (b *Binding) Key() Key { return b.key }

// invoke runs the provider through the binding's scope applier. cached
// reports a scope short-circuit: the value had already been published and no
// construction happened on this call.
func (b *Binding) invoke(ctx context.Context, res *Resolution) (value any, cached bool, err error) {
	create := func() (any, error) {
		v, creationErr := b.provider(ctx, res)
		if creationErr == nil && b.destroy != nil {
			b.scope.RegisterDestruction(func() { b.destroy(v) })
		}
		return v, creationErr
	}
	return b.scope.Apply(b, create)
}
