package rewire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestBinding(key Key) *Binding {
	return &Binding{
		key: key,
		provider: func(context.Context, *Resolution) (any, error) {
			return nil, nil
		},
		scope: perLookupScope{},
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	b := newTestBinding(KeyOf[*Cache]())

	require.NoError(t, registry.Register(b))
	assert.Equal(t, 1, registry.Len())

	got, err := registry.Lookup(KeyOf[*Cache]())
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = registry.Lookup(KeyOf[*Repo]())
	assert.ErrorIs(t, err, ErrBindingNotFound)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newTestBinding(KeyOf[*Cache]())))

	err := registry.Register(newTestBinding(KeyOf[*Cache]()))
	assert.ErrorIs(t, err, ErrDuplicateBinding)
}

func TestRegistryQualifiersDoNotCollide(t *testing.T) {
	registry := NewRegistry()
	plain := newTestBinding(KeyOf[*Cache]())
	named := newTestBinding(KeyOf[*Cache]("primary"))

	require.NoError(t, registry.Register(plain))
	require.NoError(t, registry.Register(named))

	got, err := registry.Lookup(KeyOf[*Cache]("primary"))
	require.NoError(t, err)
	assert.Same(t, named, got)
}

func TestRegistryConcurrentLookups(t *testing.T) {
	registry := NewRegistry()
	b := newTestBinding(KeyOf[*Cache]())
	require.NoError(t, registry.Register(b))

	var group errgroup.Group
	for i := 0; i < 32; i++ {
		group.Go(func() error {
			got, err := registry.Lookup(KeyOf[*Cache]())
			if err != nil {
				return err
			}
			assert.Same(t, b, got)
			return nil
		})
	}
	require.NoError(t, group.Wait())
}
