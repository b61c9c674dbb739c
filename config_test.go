package rewire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, (&Config{MaxDrainRounds: 1}).Validate())
	assert.Error(t, (&Config{MaxDrainRounds: 0}).Validate())
	assert.Error(t, (&Config{MaxDrainRounds: 8, MaxChainDepth: -1}).Validate())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(WithConfig(Config{MaxDrainRounds: -1}))
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid resolver config")
}

func TestMaxChainDepthIsEnforced(t *testing.T) {
	resolver, err := New(
		WithConfig(Config{MaxDrainRounds: 8, MaxChainDepth: 1}),
		Bind[*Cache](func(context.Context, *Resolution) (*Cache, error) {
			return &Cache{}, nil
		}),
		Bind[*Repo](func(ctx context.Context, res *Resolution) (*Repo, error) {
			cache, resolveErr := res.Resolve(ctx, KeyOf[*Cache]())
			if resolveErr != nil {
				return nil, resolveErr
			}
			return &Repo{cache: cache.(*Cache)}, nil
		}),
		Bind[*Service](func(ctx context.Context, res *Resolution) (*Service, error) {
			repo, resolveErr := res.Resolve(ctx, KeyOf[*Repo]())
			if resolveErr != nil {
				return nil, resolveErr
			}
			return &Service{repo: repo.(*Repo)}, nil
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = Resolve[*Repo](ctx, resolver)
	require.NoError(t, err)

	_, err = Resolve[*Service](ctx, resolver)
	require.Error(t, err)
	assert.ErrorContains(t, err, "resolution chain exceeded 1 nodes")
}

func TestMaxChainDepthBoundsRecursiveOverrideProviders(t *testing.T) {
	resolver, err := New(
		WithConfig(Config{MaxDrainRounds: 8, MaxChainDepth: 4}),
		BindValue(&Cache{}),
	)
	require.NoError(t, err)

	_, err = Resolve[*Cache](context.Background(), resolver,
		WithOverrideProvider(KeyOf[*Cache](), func(ctx context.Context, res *Resolution) (any, error) {
			return res.Resolve(ctx, KeyOf[*Cache]())
		}),
	)
	require.Error(t, err)
	assert.ErrorContains(t, err, "resolution chain exceeded 4 nodes")
}
