package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/cache"
)

func TestGetLazilyInstantiatesFromTemplate(t *testing.T) {
	r := NewRegistry()
	defer r.Destroy()

	sys, err := r.Get(HotPrompts)
	require.NoError(t, err)
	require.NotNil(t, sys)

	again, err := r.Get(HotPrompts)
	require.NoError(t, err)
	assert.Same(t, sys, again, "Get must return the same instance on repeat calls")
}

func TestGetUnknownPartitionErrors(t *testing.T) {
	r := NewRegistry()
	defer r.Destroy()

	_, err := r.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownPartition)
}

func TestWithTemplateOverridesDefault(t *testing.T) {
	custom := cache.NewConfig(cache.WithStrategy(cache.StrategySimple), cache.WithMaxSize(7))
	r := NewRegistry(WithTemplate("custom", custom))
	defer r.Destroy()

	sys, err := r.Get("custom")
	require.NoError(t, err)

	require.NoError(t, sys.Set("k", "v", 0))
	v, ok := sys.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestAggregateSumsAcrossPartitions(t *testing.T) {
	r := NewRegistry()
	defer r.Destroy()

	metadataSys, err := r.Get(Metadata)
	require.NoError(t, err)
	templatesSys, err := r.Get(Templates)
	require.NoError(t, err)

	require.NoError(t, metadataSys.Set("m1", "v", 0))
	metadataSys.Get("m1")
	require.NoError(t, templatesSys.Set("t1", "v", 0))
	templatesSys.Get("t1")
	templatesSys.Get("missing")

	agg := r.Aggregate()
	assert.Equal(t, uint64(2), agg.Sets)
	assert.Equal(t, uint64(2), agg.Hits)
	assert.Equal(t, uint64(1), agg.Misses)
}

func TestPartitionsNamespaceKeysIndependently(t *testing.T) {
	r := NewRegistry()
	defer r.Destroy()

	metadataSys, err := r.Get(Metadata)
	require.NoError(t, err)
	templatesSys, err := r.Get(Templates)
	require.NoError(t, err)

	require.NoError(t, metadataSys.Set("shared-key", "metadata-value", 0))
	require.NoError(t, templatesSys.Set("shared-key", "templates-value", 0))

	v, ok := metadataSys.Get("shared-key")
	assert.True(t, ok)
	assert.Equal(t, "metadata-value", v)

	v, ok = templatesSys.Get("shared-key")
	assert.True(t, ok)
	assert.Equal(t, "templates-value", v)
}

func TestDestroyIsIdempotentAndClearsPartitions(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(SearchResults)
	require.NoError(t, err)

	r.Destroy()
	r.Destroy() // must not panic

	assert.Empty(t, r.Names())
}
