package rewire

import (
	"context"
	"fmt"
	"reflect"
)

type configuration struct {
	specs    []*bindingSpec
	scopes   map[string]Scope
	adapters map[reflect.Type]AdapterFunc
	members  MemberInjector
	config   Config
	trace    bool
}

// Option configures the resolver being built.
type Option interface {
	apply(*configuration) error
}

type bindingSpec struct {
	key           Key
	provider      Provider
	scope         string
	injectMembers bool
	destroy       func(value any)
}

// Annotation configures a binding created by Bind.
type Annotation interface {
	apply(*bindingSpec) error
}

type bindOption struct {
	spec        *bindingSpec
	annotations []Annotation
}

func (o *bindOption) apply(cfg *configuration) error {
	if o.spec.provider == nil {
		return newConfigurationError("cannot accept nil provider", nil)
	}
	for _, a := range o.annotations {
		if err := a.apply(o.spec); err != nil {
			return newConfigurationError(
				fmt.Sprintf("got error while configuring binding for %s", o.spec.key), err)
		}
	}
	cfg.specs = append(cfg.specs, o.spec)
	return nil
}

// Bind registers a provider for type T. The provider's own dependency
// lookups go through res and re-enter the engine. Bindings default to the
// per-lookup scope; use In(Singleton) to cache the constructed value.
func Bind[T any](provider func(ctx context.Context, res *Resolution) (T, error), annotations ...Annotation) Option {
	var p Provider
	if provider != nil {
		p = func(ctx context.Context, res *Resolution) (any, error) {
			return provider(ctx, res)
		}
	}
	return &bindOption{
		spec: &bindingSpec{
			key:      KeyOf[T](),
			provider: p,
			scope:    PerLookup,
		},
		annotations: annotations,
	}
}

// BindValue registers a fixed value for type T.
func BindValue[T any](value T, annotations ...Annotation) Option {
	return Bind[T](func(context.Context, *Resolution) (T, error) {
		return value, nil
	}, annotations...)
}

type nameAnnotation struct {
	name string
}

func (a *nameAnnotation) apply(spec *bindingSpec) error {
	spec.key.Qualifier = a.name
	return nil
}

// Named qualifies the binding so it only satisfies requests carrying the
// same qualifier.
func Named(name string) Annotation {
	return &nameAnnotation{name: name}
}

type inAnnotation struct {
	scope string
}

func (a *inAnnotation) apply(spec *bindingSpec) error {
	spec.scope = a.scope
	return nil
}

// In places the binding in the named scope.
func In(scope string) Annotation {
	return &inAnnotation{scope: scope}
}

type injectMembersAnnotation struct{}

func (injectMembersAnnotation) apply(spec *bindingSpec) error {
	kind := spec.key.Type.Kind()
	if kind != reflect.Ptr && kind != reflect.Interface {
		return newConfigurationError(
			fmt.Sprintf("InjectMembers requires a pointer or interface binding, got %s", spec.key), nil)
	}
	spec.injectMembers = true
	return nil
}

// InjectMembers defers population of the constructed value's `inject`-tagged
// fields until the top-level resolution finalizes. This is what allows a
// field to depend, directly or transitively, on the value itself.
func InjectMembers() Annotation {
	return injectMembersAnnotation{}
}

type destroyAnnotation struct {
	destroy func(value any)
}

func (a *destroyAnnotation) apply(spec *bindingSpec) error {
	spec.destroy = a.destroy
	return nil
}

// WithDestroy declares a destruction callback for values constructed by this
// binding. The callback runs when the binding's scope is torn down.
func WithDestroy[T any](destroy func(T)) Annotation {
	return &destroyAnnotation{destroy: func(value any) {
		if t, ok := value.(T); ok {
			destroy(t)
		}
	}}
}

type moduleOption struct {
	name    string
	options []Option
}

func (o *moduleOption) apply(cfg *configuration) error {
	for _, opt := range o.options {
		if err := opt.apply(cfg); err != nil {
			return newConfigurationError(
				fmt.Sprintf("error while installing module %s", o.name), err)
		}
	}
	return nil
}

// Module groups a list of Options in order to easily reuse them. The module
// name is used in errors to locate misconfigured options.
func Module(name string, options ...Option) Option {
	return &moduleOption{name: name, options: options}
}

type registerScopeOption struct {
	name  string
	scope Scope
}

func (o *registerScopeOption) apply(cfg *configuration) error {
	cfg.scopes[o.name] = o.scope
	return nil
}

// RegisterScope registers a new Scope under a name.
func RegisterScope(name string, scope Scope) Option {
	return &registerScopeOption{name: name, scope: scope}
}

type adapterOption struct {
	target reflect.Type
	build  AdapterFunc
}

func (o *adapterOption) apply(cfg *configuration) error {
	if o.target.Kind() != reflect.Interface {
		return newConfigurationError(
			fmt.Sprintf("placeholder adapters require an interface type, got %s", o.target), nil)
	}
	cfg.adapters[o.target] = o.build
	return nil
}

// WithAdapter registers the placeholder adapter for interface I, making I
// proxyable: cycles through I are broken with a deferred placeholder built
// by the adapter.
func WithAdapter[I any](build func(*Placeholder) I) Option {
	return &adapterOption{
		target: reflect.TypeOf((*I)(nil)).Elem(),
		build:  func(p *Placeholder) any { return build(p) },
	}
}

type memberInjectorOption struct {
	members MemberInjector
}

func (o *memberInjectorOption) apply(cfg *configuration) error {
	if o.members == nil {
		return newConfigurationError("cannot accept nil member injector", nil)
	}
	cfg.members = o.members
	return nil
}

// WithMemberInjector replaces the default `inject`-tag member injector.
func WithMemberInjector(members MemberInjector) Option {
	return &memberInjectorOption{members: members}
}

type configOption struct {
	config Config
}

func (o *configOption) apply(cfg *configuration) error {
	cfg.config = o.config
	return nil
}

// WithConfig replaces the default engine limits.
func WithConfig(config Config) Option {
	return &configOption{config: config}
}

type traceOption struct{}

func (traceOption) apply(cfg *configuration) error {
	cfg.trace = true
	return nil
}

// WithTrace records the dependency edges observed while resolving.
func WithTrace() Option {
	return traceOption{}
}
