package kvmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/internal/storage/kv/kvtest"
)

func TestKVMap(t *testing.T) {
	kvtest.TestBucket(t, NewBucket())
}

func TestKVMapCopiesValues(t *testing.T) {
	ctx := context.Background()
	b := NewBucket()
	v := []byte("abc")
	require.NoError(t, b.Set(ctx, "k", v))
	v[0] = 'z'

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
