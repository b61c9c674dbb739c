package rewire

import (
	"errors"
	"io"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Trace records the dependency edges observed while resolving. Unlike the
// resolution chain it is cumulative across chains and may contain cycles.
type Trace struct {
	mu sync.Mutex
	g  graph.Graph[string, Key]
}

func newTrace() *Trace {
	return &Trace{
		g: graph.New(func(k Key) string { return k.id() }, graph.Directed()),
	}
}

func (t *Trace) vertex(k Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addVertexLocked(k)
}

func (t *Trace) edge(from, to Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addVertexLocked(from)
	t.addVertexLocked(to)
	if err := t.g.AddEdge(from.id(), to.id()); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		// recording is best-effort
		return
	}
}

func (t *Trace) addVertexLocked(k Key) {
	if err := t.g.AddVertex(k); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return
	}
}

// HasEdge reports whether a resolution of from requested to.
func (t *Trace) HasEdge(from, to Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.g.Edge(from.id(), to.id())
	return err == nil
}

// Edges returns every recorded dependency edge.
func (t *Trace) Edges() ([]graph.Edge[string], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.g.Edges()
}

// DOT writes the recorded graph in Graphviz DOT format.
func (t *Trace) DOT(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return draw.DOT(t.g, w)
}
