package rewire

import (
	"context"
	"fmt"
)

// finalize runs once a top-level resolution's object graph is fully
// constructed. Callable only on a chain root. It marks the root obsolete,
// asserts every placeholder received its redirect, then drains the pending
// member-injection set until it stabilizes. Draining is re-entrant: applying
// an injection may resolve further bindings on this same root and enqueue
// more pending injections.
func (root *node) finalize(ctx context.Context, r *Resolver) error {
	if !root.isRoot() {
		return fmt.Errorf("internal: finalize called on a non-root resolution node for %s", root.binding.key)
	}

	root.obsolete = true
	root.draining = true
	defer func() { root.draining = false }()

	if err := root.validatePlaceholders(); err != nil {
		return err
	}

	res := &Resolution{resolver: r, node: root}
	ctx = withChain(ctx, res)

	// Each instance is injected at most once per finalize, so re-requests
	// during the drain cannot loop. A round counts against MaxDrainRounds
	// only while the pending set is not shrinking; deep but converging
	// injection graphs drain fully.
	seen := make(map[pendingKey]bool, len(root.pending))
	stalled := 0
	for len(root.pending) > 0 {
		batch := make([]*PendingInjection, 0, len(root.pending))
		for k, p := range root.pending {
			if seen[k] {
				continue
			}
			seen[k] = true
			batch = append(batch, p)
		}
		clear(root.pending)
		if len(batch) == 0 {
			break
		}

		for _, p := range batch {
			if err := r.members.Apply(ctx, res, p); err != nil {
				return err
			}
		}

		if len(root.pending) < len(batch) {
			stalled = 0
			continue
		}
		stalled++
		if stalled >= r.config.MaxDrainRounds {
			return fmt.Errorf("pending member injections did not stabilize after %d rounds", r.config.MaxDrainRounds)
		}
	}

	// Member injection can itself trigger new cyclic construction and new
	// placeholders.
	return root.validatePlaceholders()
}
