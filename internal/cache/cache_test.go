package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, VendorKey(1), []byte("taco"), time.Minute))

	got, err := c.Get(ctx, VendorKey(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("taco"), got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, VendorKey(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	require.NoError(t, c.Set(ctx, VendorKey(1), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, VendorKey(2), []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, RecentVendorsKey(), []byte("c"), time.Minute))
	require.NoError(t, c.Set(ctx, "other:key", []byte("d"), time.Minute))

	require.NoError(t, c.Delete(ctx, VendorKey(1)))
	_, err := c.Get(ctx, VendorKey(1))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, VendorKey(2))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Get(ctx, RecentVendorsKey())
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := c.Get(ctx, "other:key")
	require.NoError(t, err)
	assert.Equal(t, []byte("d"), got)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	type vendor struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, SetJSON(ctx, c, VendorKey(7), vendor{ID: 7, Name: "Taco Stand"}, time.Minute))

	var got vendor
	require.NoError(t, GetJSON(ctx, c, VendorKey(7), &got))
	assert.Equal(t, vendor{ID: 7, Name: "Taco Stand"}, got)

	assert.ErrorIs(t, GetJSON(ctx, c, VendorKey(8), &got), ErrNotFound)
	assert.Error(t, SetJSON(ctx, c, VendorKey(9), make(chan int), time.Minute))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "rewards:vendor:42", VendorKey(42))
	assert.Equal(t, "rewards:vendors:recent", RecentVendorsKey())
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
