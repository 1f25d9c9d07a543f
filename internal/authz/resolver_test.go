package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEffectiveTagsUnionsGroups(t *testing.T) {
	// The store already returns the deduplicated union across groups,
	// the resolver just turns it into a set.
	store := &stubGroupStore{tagsByAgent: map[string][]string{
		"agent-1": {"billing", "network", "hardware"},
	}}
	resolver := NewResolver(store, nil, time.Minute, zap.NewNop())

	tags, err := resolver.EffectiveTags(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Len(t, tags, 3)
	assert.Contains(t, tags, "billing")
	assert.Contains(t, tags, "network")
	assert.Contains(t, tags, "hardware")
}

func TestEffectiveTagsEmptyForUngroupedAgent(t *testing.T) {
	resolver := NewResolver(&stubGroupStore{}, nil, time.Minute, zap.NewNop())

	tags, err := resolver.EffectiveTags(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

// With no cache client every lookup hits the store, so a membership
// change is visible on the very next check.
func TestNilCacheAlwaysHitsStore(t *testing.T) {
	store := &stubGroupStore{tagsByAgent: map[string][]string{
		"agent-1": {"billing"},
	}}
	resolver := NewResolver(store, nil, time.Minute, zap.NewNop())

	_, err := resolver.EffectiveTags(context.Background(), "agent-1")
	require.NoError(t, err)
	_, err = resolver.EffectiveTags(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)

	store.tagsByAgent["agent-1"] = []string{"billing", "network"}
	tags, err := resolver.EffectiveTags(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestInvalidateWithoutCacheIsNoop(t *testing.T) {
	resolver := NewResolver(&stubGroupStore{}, nil, 0, zap.NewNop())
	resolver.Invalidate(context.Background())
}
