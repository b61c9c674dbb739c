package rewire

import (
	"context"
	"fmt"
	"reflect"
)

// Resolver builds object graphs: given a key it resolves the binding's
// dependencies transitively, applies scopes, and survives circular
// dependencies by substituting placeholder handles that are redirected to
// the real instance once construction completes.
type Resolver struct {
	registry  *Registry
	scopes    map[string]Scope
	proxies   *ProxyRegistry
	members   MemberInjector
	config    Config
	trace     *Trace
	singleton *singletonScope
}

// New builds a Resolver out of a list of Options.
func New(options ...Option) (*Resolver, error) {
	cfg := &configuration{
		scopes:   make(map[string]Scope),
		adapters: make(map[reflect.Type]AdapterFunc),
		members:  tagInjector{},
		config:   defaultConfig(),
	}
	for _, o := range options {
		if err := o.apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, newConfigurationError("invalid resolver config", err)
	}

	singleton := newSingletonScope()
	scopes := cfg.scopes
	scopes[Singleton] = singleton
	scopes[PerLookup] = perLookupScope{}

	r := &Resolver{
		registry:  NewRegistry(),
		scopes:    scopes,
		proxies:   newProxyRegistry(),
		members:   cfg.members,
		config:    cfg.config,
		singleton: singleton,
	}
	if cfg.trace {
		r.trace = newTrace()
	}
	for target, build := range cfg.adapters {
		r.proxies.register(target, build)
	}

	for _, spec := range cfg.specs {
		scope, ok := scopes[spec.scope]
		if !ok {
			return nil, newConfigurationError(
				fmt.Sprintf("unknown scope %q for binding %s", spec.scope, spec.key), nil)
		}
		b := &Binding{
			key:           spec.key,
			provider:      spec.provider,
			scope:         scope,
			injectMembers: spec.injectMembers,
			destroy:       spec.destroy,
		}
		if err := r.registry.Register(b); err != nil {
			return nil, newConfigurationError("failed to register binding", err)
		}
	}
	return r, nil
}

// Registry exposes the binding registry, e.g. for late registration.
func (r *Resolver) Registry() *Registry { return r.registry }

// Trace returns the resolution trace, or nil when tracing is disabled.
func (r *Resolver) Trace() *Trace { return r.trace }

// Shutdown tears down the singleton scope, running destruction callbacks in
// reverse registration order.
func (r *Resolver) Shutdown() {
	r.singleton.shutdown()
}

// ResolveOption configures one top-level resolution.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	overrides map[string]overrideEntry
}

// WithOverride substitutes value for every resolution of key within the
// chain, without invoking key's registered binding.
func WithOverride(key Key, value any) ResolveOption {
	return func(o *resolveOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]overrideEntry)
		}
		o.overrides[key.id()] = overrideEntry{value: value}
	}
}

// WithOverrideProvider substitutes a provider for every resolution of key
// within the chain.
func WithOverrideProvider(key Key, provider Provider) ResolveOption {
	return func(o *resolveOptions) {
		if o.overrides == nil {
			o.overrides = make(map[string]overrideEntry)
		}
		o.overrides[key.id()] = overrideEntry{provider: provider}
	}
}

// ResolveKey resolves key. If ctx carries an open chain of this resolver,
// the request attaches to it as a subcontext; otherwise a new chain root is
// started and finalized before returning. A previous, already finalized
// chain on ctx passes its override table forward to the new root.
func (r *Resolver) ResolveKey(ctx context.Context, key Key, opts ...ResolveOption) (any, error) {
	var ro resolveOptions
	for _, o := range opts {
		o(&ro)
	}

	b, err := r.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	if open, ok := chainFrom(ctx); ok && open.resolver == r {
		root := open.node.root
		if !root.obsolete || root.draining {
			root.overrides.merge(ro.overrides)
			return r.resolveSub(ctx, open.node, b)
		}
		// Root replacement on obsolescence: overrides survive, the chain
		// and placeholder bookkeeping start fresh.
		fresh := newRootNode(r, b, root.overrides.clone())
		fresh.overrides.merge(ro.overrides)
		return r.resolveRoot(ctx, fresh)
	}

	root := newRootNode(r, b, nil)
	root.overrides.merge(ro.overrides)
	return r.resolveRoot(ctx, root)
}

// resolveRoot executes a chain root and finalizes on success. On error the
// chain is torn down without finalization.
func (r *Resolver) resolveRoot(ctx context.Context, root *node) (any, error) {
	if r.trace != nil {
		r.trace.vertex(root.binding.key)
	}
	value, err := root.resolveInstance(ctx, r)
	if err != nil {
		root.obsolete = true
		return nil, err
	}
	if err := root.finalize(ctx, r); err != nil {
		return nil, err
	}
	return value, nil
}

// resolveSub resolves b as a dependency of x and pops the child node from
// the chain once its resolution returns.
func (r *Resolver) resolveSub(ctx context.Context, x *node, b *Binding) (any, error) {
	child, err := x.enterSubcontext(ctx, b)
	if err != nil {
		return nil, err
	}
	if child != x && child.prev == x {
		defer x.unlink(child)
	}
	return child.resolveInstance(ctx, r)
}

// Resolve resolves the unqualified binding for T.
func Resolve[T any](ctx context.Context, r *Resolver, opts ...ResolveOption) (T, error) {
	return ResolveNamed[T](ctx, r, "", opts...)
}

// ResolveNamed resolves the binding for T qualified with name.
func ResolveNamed[T any](ctx context.Context, r *Resolver, name string, opts ...ResolveOption) (T, error) {
	var zero T
	v, err := r.ResolveKey(ctx, KeyOf[T](name), opts...)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %T for %s", ErrTypeMismatch, v, KeyOf[T](name))
	}
	return t, nil
}
