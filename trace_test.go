package rewire

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRecordsDependencyEdges(t *testing.T) {
	var cacheInvocations atomic.Int32
	resolver := newGraphResolver(t, &cacheInvocations, WithTrace())

	_, err := Resolve[*Service](context.Background(), resolver)
	require.NoError(t, err)

	trace := resolver.Trace()
	require.NotNil(t, trace)
	assert.True(t, trace.HasEdge(KeyOf[*Service](), KeyOf[*Repo]()))
	assert.True(t, trace.HasEdge(KeyOf[*Repo](), KeyOf[*Cache]()))
	assert.False(t, trace.HasEdge(KeyOf[*Service](), KeyOf[*Cache]()))

	edges, err := trace.Edges()
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestTraceRecordsCyclicEdges(t *testing.T) {
	resolver, err := New(
		WithTrace(),
		WithAdapter[Api](func(p *Placeholder) Api { return apiHandle{p} }),
		Bind[Api](func(ctx context.Context, res *Resolution) (Api, error) {
			consumer, resolveErr := res.Resolve(ctx, KeyOf[*apiConsumer]())
			if resolveErr != nil {
				return nil, resolveErr
			}
			return &apiImpl{consumer: consumer.(*apiConsumer)}, nil
		}, In(Singleton)),
		Bind[*apiConsumer](func(ctx context.Context, res *Resolution) (*apiConsumer, error) {
			api, resolveErr := res.Resolve(ctx, KeyOf[Api]())
			if resolveErr != nil {
				return nil, resolveErr
			}
			return &apiConsumer{selfRef: api.(Api)}, nil
		}),
	)
	require.NoError(t, err)

	_, err = Resolve[Api](context.Background(), resolver)
	require.NoError(t, err)

	trace := resolver.Trace()
	assert.True(t, trace.HasEdge(KeyOf[Api](), KeyOf[*apiConsumer]()))
	assert.True(t, trace.HasEdge(KeyOf[*apiConsumer](), KeyOf[Api]()))
}

func TestTraceDOT(t *testing.T) {
	var cacheInvocations atomic.Int32
	resolver := newGraphResolver(t, &cacheInvocations, WithTrace())

	_, err := Resolve[*Service](context.Background(), resolver)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, resolver.Trace().DOT(&out))
	assert.Contains(t, out.String(), "digraph")
}

func TestTraceDisabledByDefault(t *testing.T) {
	resolver, err := New()
	require.NoError(t, err)
	assert.Nil(t, resolver.Trace())
}
