package rewire

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Resolution is the handle a provider (or member injector) receives to
// resolve its own dependencies. Resolving through it grows the chain of the
// resolution that is constructing the provider's value.
type Resolution struct {
	resolver *Resolver
	node     *node
}

// Key returns the key of the binding this resolution is constructing.
func (res *Resolution) Key() Key { return res.node.binding.key }

// Resolver returns the engine this resolution belongs to.
func (res *Resolution) Resolver() *Resolver { return res.resolver }

// Resolve resolves key as a subcontext of this resolution. If the chain has
// already been finalized, a fresh chain is started instead, inheriting the
// previous chain's override table.
func (res *Resolution) Resolve(ctx context.Context, key Key) (any, error) {
	b, err := res.resolver.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	root := res.node.root
	if root.obsolete && !root.draining {
		// Nested top-level resolution on the same execution unit: the
		// previous root already finished, overrides survive.
		return res.resolver.resolveRoot(ctx, newRootNode(res.resolver, b, root.overrides.clone()))
	}
	return res.resolver.resolveSub(ctx, res.node, b)
}

// RequestInjection defers member injection of instance until the current
// top-level resolution finalizes. Repeat requests for the same instance
// collapse to one. The target must be a pointer.
func (res *Resolution) RequestInjection(instance any) error {
	if instance == nil {
		return errors.New("cannot request member injection for a nil instance")
	}
	if reflect.TypeOf(instance).Kind() != reflect.Ptr {
		return fmt.Errorf("member injection target must be a pointer, got %T", instance)
	}
	res.node.root.enqueueInjection(instance)
	return nil
}

type chainKey struct{}

// withChain associates the active resolution with ctx so that re-entrant
// calls through the public entry point attach to the open chain. The ctx
// slot plays the thread-local role of the original API at the outermost
// boundary only; everything inside the engine passes handles explicitly.
func withChain(ctx context.Context, res *Resolution) context.Context {
	return context.WithValue(ctx, chainKey{}, res)
}

func chainFrom(ctx context.Context) (*Resolution, bool) {
	res, ok := ctx.Value(chainKey{}).(*Resolution)
	return res, ok
}
