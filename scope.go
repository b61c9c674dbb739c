package rewire

import (
	"sync"

	"github.com/alphadose/haxmap"
	"golang.org/x/sync/singleflight"
)

// Scope defines a scope's behaviour. Apply wraps the raw construction of a
// binding's value; the resolution engine is oblivious to scope semantics
// beyond the cached flag, which reports that the value was already published
// and no construction happened on this call.
type Scope interface {
	Apply(binding *Binding, create func() (any, error)) (value any, cached bool, err error)

	// RegisterDestruction registers a destruction callback. It is the
	// responsibility of the Scope to call it when the scope is torn down.
	RegisterDestruction(destroy func())
}

// PerLookup names the scope that constructs a fresh value on every request.
const PerLookup = "rewire.PerLookup"

type perLookupScope struct{}

var _ Scope = perLookupScope{}

func (perLookupScope) Apply(_ *Binding, create func() (any, error)) (any, bool, error) {
	v, err := create()
	return v, false, err
}

func (perLookupScope) RegisterDestruction(func()) {
	// per-lookup values are owned by their requesters
}

// Singleton names the scope that constructs at most once and publishes the
// result to all callers.
const Singleton = "rewire.Singleton"

// singletonScope caches one value per binding. The first caller constructs;
// concurrent callers for the same key share the published result. Re-entrant
// construction of the same key on one goroutine would deadlock in Do, but
// the engine's cycle detection guarantees it never re-invokes a binding that
// is already constructing on the current chain.
type singletonScope struct {
	instances *haxmap.Map[string, any]
	flight    singleflight.Group

	destroyMu sync.Mutex
	destroys  []func()
}

var _ Scope = new(singletonScope)

func newSingletonScope() *singletonScope {
	return &singletonScope{instances: haxmap.New[string, any]()}
}

func (s *singletonScope) Apply(b *Binding, create func() (any, error)) (any, bool, error) {
	id := b.key.id()
	if v, ok := s.instances.Get(id); ok {
		return v, true, nil
	}
	// The closure runs on the leader's goroutine only, so constructed stays
	// false for callers that joined an in-flight construction. The inner
	// cache check covers a caller that wins a fresh flight after an earlier
	// flight for the same key already published.
	constructed := false
	v, err, _ := s.flight.Do(id, func() (any, error) {
		if v, ok := s.instances.Get(id); ok {
			return v, nil
		}
		constructed = true
		created, createErr := create()
		if createErr != nil {
			return nil, createErr
		}
		s.instances.Set(id, created)
		return created, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, !constructed, nil
}

func (s *singletonScope) RegisterDestruction(destroy func()) {
	s.destroyMu.Lock()
	defer s.destroyMu.Unlock()
	s.destroys = append(s.destroys, destroy)
}

func (s *singletonScope) shutdown() {
	s.destroyMu.Lock()
	defer s.destroyMu.Unlock()

	for i := len(s.destroys) - 1; i >= 0; i-- {
		s.destroys[i]()
	}
	s.destroys = nil
	s.instances = haxmap.New[string, any]()
}
