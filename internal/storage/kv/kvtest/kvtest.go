// Package kvtest holds a conformance suite shared by the bucket backends.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/internal/storage/kv"
)

// TestBucket exercises Get, Set, Has and Delete against b.
// The bucket is expected to be empty of keys prefixed "kvtest.".
func TestBucket(t *testing.T, b kv.Bucket) {
	ctx := context.Background()
	const key = "kvtest.key"

	t.Cleanup(func() { _ = b.Delete(ctx, key) })

	found, err := b.Has(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = b.Get(ctx, key)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	require.NoError(t, b.Set(ctx, key, []byte("first")))
	found, err = b.Has(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	v, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), v)

	require.NoError(t, b.Set(ctx, key, []byte("second")))
	v, err = b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), v)

	require.NoError(t, b.Delete(ctx, key))
	found, err = b.Has(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	// deleting again is not an error
	assert.NoError(t, b.Delete(ctx, key))
}
