package rewire

import (
	"fmt"
	"reflect"
	"sync"
)

// Placeholder is a deferred stand-in for a value that is still under
// construction. The redirect is set exactly once; reads before that fail
// with ErrNotYetConstructed.
type Placeholder struct {
	key Key

	mu     sync.RWMutex
	target any
	bound  bool
}

// Key returns the key of the binding this placeholder stands in for.
func (p *Placeholder) Key() Key { return p.key }

// Bound reports whether the redirect has been set.
func (p *Placeholder) Bound() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bound
}

// Redirect points the placeholder at the constructed value. A second call is
// a caller bug and fails with ErrPlaceholderBound.
func (p *Placeholder) Redirect(value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bound {
		return ErrPlaceholderBound
	}
	p.target = value
	p.bound = true
	return nil
}

// Target returns the redirect target, or ErrNotYetConstructed before the
// redirect is set.
func (p *Placeholder) Target() (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.bound {
		return nil, fmt.Errorf("%w: %s", ErrNotYetConstructed, p.key)
	}
	return p.target, nil
}

// MustTarget is Target for adapter methods that cannot return an error. It
// panics with ErrNotYetConstructed when the placeholder is still unbound.
func (p *Placeholder) MustTarget() any {
	v, err := p.Target()
	if err != nil {
		panic(err)
	}
	return v
}

// placeholderRef is promoted into adapter handles that embed *Placeholder,
// letting Unwrap route identity checks to the redirect target.
func (p *Placeholder) placeholderRef() *Placeholder { return p }

type handleCarrier interface {
	placeholderRef() *Placeholder
}

// Unwrap follows a placeholder handle to its redirect target once bound, so
// identity comparisons against the real instance succeed. Non-handle values
// and unbound handles are returned as-is.
func Unwrap(v any) any {
	if h, ok := v.(handleCarrier); ok {
		if target, err := h.placeholderRef().Target(); err == nil {
			return target
		}
	}
	return v
}

// AdapterFunc builds a handle implementing one interface shape around a
// placeholder. The handle is expected to embed the placeholder and forward
// every method to MustTarget.
type AdapterFunc func(*Placeholder) any

// ProxyRegistry maps interface types to their placeholder adapters. Go has
// no runtime interface synthesis, so an interface is proxyable only when an
// adapter was registered for it.
type ProxyRegistry struct {
	mu       sync.RWMutex
	adapters map[reflect.Type]AdapterFunc
}

func newProxyRegistry() *ProxyRegistry {
	return &ProxyRegistry{adapters: make(map[reflect.Type]AdapterFunc)}
}

func (pr *ProxyRegistry) register(t reflect.Type, build AdapterFunc) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.adapters[t] = build
}

// CanCreate reports whether a placeholder handle can be built for t.
func (pr *ProxyRegistry) CanCreate(t reflect.Type) bool {
	if t.Kind() != reflect.Interface {
		return false
	}
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	_, ok := pr.adapters[t]
	return ok
}

// Create builds a fresh unbound placeholder for key and its adapter handle.
func (pr *ProxyRegistry) Create(key Key) (any, *Placeholder, error) {
	pr.mu.RLock()
	build, ok := pr.adapters[key.Type]
	pr.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoAdapter, key)
	}
	ph := &Placeholder{key: key}
	return build(ph), ph, nil
}
