package insightstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewMemoryStore()

	_, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(context.Background(), "key", []byte("value"), time.Minute))

	value, found, err := store.Get(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value"), value)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "key", []byte("value"), time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	_, found, err := store.Get(context.Background(), "key")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "key", []byte("value"), 0))

	_, found, err := store.Get(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemoryStore_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	original := []byte("value")
	require.NoError(t, store.Set(context.Background(), "key", original, time.Minute))

	value, _, err := store.Get(context.Background(), "key")
	require.NoError(t, err)
	value[0] = 'X'

	again, _, err := store.Get(context.Background(), "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), again)
}
