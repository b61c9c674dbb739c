package rewire

import (
	"context"
	"maps"
)

// overrideEntry is an externally supplied substitute for a binding key:
// either a fixed value or a provider invoked on every hit.
type overrideEntry struct {
	value    any
	provider Provider
}

func (e overrideEntry) resolve(ctx context.Context, res *Resolution) (any, error) {
	if e.provider != nil {
		return e.provider(ctx, res)
	}
	return e.value, nil
}

// overrideTable is the chain-root-owned key -> substitute mapping consulted
// before falling back to the binding registry. Entries match by key value,
// not binding identity.
type overrideTable struct {
	entries map[string]overrideEntry
}

func newOverrideTable() *overrideTable {
	return &overrideTable{entries: make(map[string]overrideEntry)}
}

func (t *overrideTable) lookup(key Key) (overrideEntry, bool) {
	e, ok := t.entries[key.id()]
	return e, ok
}

func (t *overrideTable) set(key Key, e overrideEntry) {
	t.entries[key.id()] = e
}

func (t *overrideTable) merge(other map[string]overrideEntry) {
	maps.Copy(t.entries, other)
}

// clone copies the table forward when an obsolete root is replaced, so
// overrides survive nested top-level resolutions on the same execution unit.
func (t *overrideTable) clone() *overrideTable {
	return &overrideTable{entries: maps.Clone(t.entries)}
}
