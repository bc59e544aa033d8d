package sessions

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsight/coinsight-bot/internal/config"
	"github.com/coinsight/coinsight-bot/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	store, err := New(context.Background(), config.RedisConnection{
		AddressRedis: mr.Addr(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessions_SetAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	expected := models.Session{
		Language:   "ar",
		Stage:      models.StageAwaitingSymbol,
		LastSymbol: "BTC",
	}
	require.NoError(t, store.Set(ctx, 42, expected))

	actual, found, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected, actual)
}

func TestSessions_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, found, err := store.Get(context.Background(), 777)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessions_Invalidate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 42, models.Session{Stage: models.StageInitial}))
	require.NoError(t, store.Invalidate(ctx, 42))

	_, found, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)
}
