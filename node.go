package rewire

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
)

type nodeState int

const (
	// stateReady: not currently resolving; reusable for an independent call.
	stateReady nodeState = iota
	// stateConstructing: the binding's provider is running.
	stateConstructing
	// stateProxied: the node's value is a placeholder handle.
	stateProxied
	// stateDelegated: the node's value is known and cached in result.
	stateDelegated
)

// placeholderRecord tracks one placeholder created anywhere in the chain:
// the binding it stands in for, the handle, and whether the redirect has
// fired, which is what makes it safe to reuse for another node requesting
// the same binding.
type placeholderRecord struct {
	binding *Binding
	ph      *Placeholder
	handle  any
	fired   bool
}

// node is one in-flight (or completed) resolution of one binding. Nodes form
// a linear chain from the root to the currently active leaf, not a general
// tree. Only the root owns the override table, the placeholder records and
// the pending member-injection set; other nodes delegate those reads to root.
type node struct {
	state   nodeState
	binding *Binding
	result  any

	// set when stateProxied
	placeholder *Placeholder
	handle      any

	prev, next *node
	root       *node
	depth      int

	waiting   []*node
	listeners []func(value any)

	// root-only state
	resolver     *Resolver
	overrides    *overrideTable
	placeholders []*placeholderRecord
	pending      map[pendingKey]*PendingInjection
	obsolete     bool
	draining     bool
}

func newRootNode(r *Resolver, b *Binding, inherited *overrideTable) *node {
	n := &node{
		state:     stateReady,
		binding:   b,
		resolver:  r,
		overrides: inherited,
		pending:   make(map[pendingKey]*PendingInjection),
	}
	if n.overrides == nil {
		n.overrides = newOverrideTable()
	}
	n.root = n
	return n
}

func (n *node) isRoot() bool { return n.root == n }

// selfProxiedSignal is the control-flow outcome of a self-cycle: it unwinds
// the in-flight provider so resolveInstance can substitute the placeholder
// and retry. It is always caught internally and never observed by callers.
type selfProxiedSignal struct {
	node *node
	rec  *placeholderRecord
}

func (s *selfProxiedSignal) Error() string {
	return fmt.Sprintf("internal: self-cycle placeholder substituted for %s", s.node.binding.key)
}

// enterSubcontext resolves where a dependency request from x goes: to an
// override, to an existing node on the chain (cycle), or to a new child.
func (x *node) enterSubcontext(ctx context.Context, b *Binding) (*node, error) {
	root := x.root

	if root.resolver.trace != nil {
		root.resolver.trace.edge(x.binding.key, b.key)
	}

	// The depth guard comes first so that every entered subcontext counts,
	// override children included.
	if max := root.resolver.config.MaxChainDepth; max > 0 && x.depth+1 > max {
		return nil, fmt.Errorf("resolution chain exceeded %d nodes while resolving %s", max, b.key)
	}

	// Override hit: no cycle analysis needed.
	if entry, ok := root.overrides.lookup(b.key); ok {
		child := x.link(b)
		value, err := entry.resolve(ctx, &Resolution{resolver: root.resolver, node: child})
		if err != nil {
			x.unlink(child)
			return nil, err
		}
		child.state = stateDelegated
		child.result = value
		return child, nil
	}

	// Ancestor scan. The same *Binding already on the chain means a cycle;
	// a node left in stateReady completed an earlier, independent call and
	// does not count.
	for l := x; l != nil; l = l.prev {
		if l.binding != b {
			continue
		}
		switch l.state {
		case stateDelegated, stateProxied:
			// The value is already safely known without re-entering
			// construction.
			return l, nil
		case stateConstructing:
			return x.breakCycle(l, b)
		}
	}

	return x.link(b), nil
}

// breakCycle handles a request for binding b that is already constructing at
// ancestor l. Only interface types with a registered adapter can be proxied.
func (x *node) breakCycle(l *node, b *Binding) (*node, error) {
	root := x.root

	if !root.resolver.proxies.CanCreate(b.key.Type) {
		return nil, x.cycleError(l, b)
	}

	rec, err := root.placeholderFor(b)
	if err != nil {
		return nil, err
	}

	if l == x {
		// Self-cycle: the node's own construction requested itself. Unwind
		// the in-flight provider; resolveInstance catches the signal,
		// substitutes the placeholder and retries.
		return nil, &selfProxiedSignal{node: x, rec: rec}
	}

	// Ancestor cycle: hand back a proxied marker node. The ancestor's
	// completion redirects the placeholder; the ancestor's binding is never
	// invoked a second time.
	marker := x.link(b)
	marker.state = stateProxied
	marker.placeholder = rec.ph
	marker.handle = rec.handle
	if !rec.fired {
		l.onComplete(func(value any) {
			if !rec.ph.Bound() {
				_ = rec.ph.Redirect(value)
				rec.fired = true
			}
		})
		l.waiting = append(l.waiting, marker)
	}
	return marker, nil
}

// placeholderFor returns a reusable placeholder record for b, or creates a
// fresh one. A record is reusable only once its redirect has fired, so two
// independent cyclic paths converging on the same cached binding observe
// the same placeholder.
func (root *node) placeholderFor(b *Binding) (*placeholderRecord, error) {
	for _, rec := range root.placeholders {
		if rec.binding == b && rec.fired {
			return rec, nil
		}
	}
	handle, ph, err := root.resolver.proxies.Create(b.key)
	if err != nil {
		return nil, err
	}
	rec := &placeholderRecord{binding: b, ph: ph, handle: handle}
	root.placeholders = append(root.placeholders, rec)
	return rec, nil
}

func (x *node) cycleError(l *node, requested *Binding) error {
	var path []*node
	for n := x; n != nil; n = n.prev {
		path = append(path, n)
	}
	slices.Reverse(path)

	e := &CycleError{}
	for i, n := range path {
		e.Chain = append(e.Chain, n.binding.key)
		if n == l {
			e.At = i
		}
	}
	e.Chain = append(e.Chain, requested.key)
	return e
}

func (x *node) link(b *Binding) *node {
	child := &node{
		state:   stateReady,
		binding: b,
		prev:    x,
		root:    x.root,
		depth:   x.depth + 1,
	}
	x.next = child
	return child
}

func (x *node) unlink(child *node) {
	if x.next == child {
		x.next = nil
	}
}

func (n *node) onComplete(fn func(value any)) {
	n.listeners = append(n.listeners, fn)
}

// resolveInstance drives the node's state machine and returns its value.
func (n *node) resolveInstance(ctx context.Context, r *Resolver) (any, error) {
	switch n.state {
	case stateDelegated:
		return n.result, nil
	case stateProxied:
		return n.handle, nil
	case stateConstructing:
		return nil, &ReentrancyError{Key: n.binding.key}
	}

	// Overrides also cover the node's own key, so an overridden binding is
	// never invoked, not even at the top level.
	if entry, ok := n.root.overrides.lookup(n.binding.key); ok {
		res := &Resolution{resolver: r, node: n}
		value, err := entry.resolve(ctx, res)
		if err != nil {
			return nil, err
		}
		n.state = stateDelegated
		n.result = value
		n.complete(value)
		return value, nil
	}

	n.state = stateConstructing
	res := &Resolution{resolver: r, node: n}

	var (
		value  any
		cached bool
		err    error
	)
	for {
		value, cached, err = n.binding.invoke(withChain(ctx, res), res)
		var sig *selfProxiedSignal
		if !errors.As(err, &sig) {
			break
		}
		if sig.node == n {
			return n.completeSelfCycle(ctx, r, sig.rec)
		}
		// The signal crossed goroutines through a shared singleton flight.
		// The chain that raised it retries and publishes its value, so
		// invoking again observes the cache or joins that retry.
	}
	if err != nil {
		n.state = stateReady
		return nil, err
	}

	if cached {
		// A scope short-circuit: the value is known for the rest of the
		// chain, and any placeholder another cyclic entry point created for
		// this binding must converge on it now.
		n.state = stateDelegated
		n.result = value
		n.root.redirectUnfired(n.binding, value)
	} else {
		n.state = stateReady
		n.enqueueMembers(value)
	}
	n.complete(value)
	return value, nil
}

// completeSelfCycle finishes a construction that requested itself: the node
// is delegated to the placeholder handle and the provider runs once more, so
// its inner self-request short-circuits on the delegated state. The node
// legitimately stays resolved afterwards.
func (n *node) completeSelfCycle(ctx context.Context, r *Resolver, rec *placeholderRecord) (any, error) {
	n.state = stateDelegated
	n.result = rec.handle

	res := &Resolution{resolver: r, node: n}
	value, _, err := n.binding.invoke(withChain(ctx, res), res)
	if err != nil {
		n.state = stateReady
		n.result = nil
		return nil, err
	}

	n.result = value
	if !rec.fired {
		_ = rec.ph.Redirect(value)
		rec.fired = true
	}
	n.enqueueMembers(value)
	n.complete(value)
	return value, nil
}

// complete notifies completion listeners, then settles the nodes waiting on
// this one with the final value.
func (n *node) complete(value any) {
	listeners := n.listeners
	n.listeners = nil
	for _, fn := range listeners {
		fn(value)
	}

	waiting := n.waiting
	n.waiting = nil
	for _, w := range waiting {
		w.state = stateDelegated
		w.result = value
	}
}

// redirectUnfired points every not-yet-fired placeholder for b at value, so
// multiple independent cyclic entry points into the same cached binding end
// up on the identical instance.
func (root *node) redirectUnfired(b *Binding, value any) {
	for _, rec := range root.placeholders {
		if rec.binding == b && !rec.fired {
			_ = rec.ph.Redirect(value)
			rec.fired = true
		}
	}
}

func (n *node) enqueueMembers(value any) {
	if !n.binding.injectMembers {
		return
	}
	n.root.enqueueInjection(value)
}

func (root *node) enqueueInjection(instance any) {
	if instance == nil {
		return
	}
	t := reflect.TypeOf(instance)
	if t.Kind() != reflect.Ptr {
		// placeholder handles and value types have no injectable members
		return
	}
	key := pendingKey{typ: t, instance: instance}
	if _, ok := root.pending[key]; !ok {
		root.pending[key] = &PendingInjection{Instance: instance, Type: t}
	}
}

func (root *node) validatePlaceholders() error {
	unredirected := 0
	for _, rec := range root.placeholders {
		if !rec.ph.Bound() {
			unredirected++
		}
	}
	if unredirected > 0 {
		return &IncompleteConstructionError{Unredirected: unredirected}
	}
	return nil
}
