package history

import (
	"context"
	"testing"
	"time"

	"github.com/clustersweep-io/clustersweep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContract(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	notified, err := store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityWarning)
	require.NoError(t, err)
	assert.False(t, notified)

	require.NoError(t, store.MarkNotified(ctx, "default", "dev-1", types.SeverityWarning, time.Hour))

	notified, err = store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityWarning)
	require.NoError(t, err)
	assert.True(t, notified)

	// Severities are tracked independently.
	notified, err = store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityCritical)
	require.NoError(t, err)
	assert.False(t, notified)

	// So are clusters.
	notified, err = store.HasBeenNotified(ctx, "other", "dev-1", types.SeverityWarning)
	require.NoError(t, err)
	assert.False(t, notified)

	keys, err := store.AllNotified(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Key{{Namespace: "default", Name: "dev-1"}}, keys)

	require.NoError(t, store.ClearHistory(ctx, "default", "dev-1"))

	notified, err = store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityWarning)
	require.NoError(t, err)
	assert.False(t, notified)

	keys, err = store.AllNotified(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.MarkNotified(ctx, "default", "dev-1", types.SeverityCritical, time.Hour))

	notified, err := store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityCritical)
	require.NoError(t, err)
	assert.True(t, notified)

	// Past the TTL the record is gone.
	current = current.Add(2 * time.Hour)

	notified, err = store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityCritical)
	require.NoError(t, err)
	assert.False(t, notified)

	keys, err := store.AllNotified(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStoreReMarkRearmsTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.MarkNotified(ctx, "default", "dev-1", types.SeverityWarning, time.Hour))

	current = current.Add(50 * time.Minute)
	require.NoError(t, store.MarkNotified(ctx, "default", "dev-1", types.SeverityWarning, time.Hour))

	// 70 minutes after the first mark, 20 after the second: still present.
	current = current.Add(20 * time.Minute)
	notified, err := store.HasBeenNotified(ctx, "default", "dev-1", types.SeverityWarning)
	require.NoError(t, err)
	assert.True(t, notified)
}

func TestFilterNewAndMarkAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	candidates := []types.Candidate{
		{Record: types.ClusterRecord{Name: "a", Ref: &types.ClusterRef{Name: "a", Namespace: "ns"}}},
		{Record: types.ClusterRecord{Name: "b", Ref: &types.ClusterRef{Name: "b", Namespace: "ns"}}},
	}

	fresh, err := FilterNew(ctx, store, candidates, types.SeverityWarning)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	require.NoError(t, MarkAll(ctx, store, candidates[:1], types.SeverityWarning, time.Hour))

	fresh, err = FilterNew(ctx, store, candidates, types.SeverityWarning)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "b", fresh[0].Record.TargetName())
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "default:dev-1", Key{Namespace: "default", Name: "dev-1"}.String())
}
