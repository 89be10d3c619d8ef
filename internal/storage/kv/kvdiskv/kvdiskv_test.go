package kvdiskv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/internal/storage/kv/kvtest"
)

func TestKVDiskv(t *testing.T) {
	kvtest.TestBucket(t, New(t.TempDir()))
}

func TestKVDiskvPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, New(dir).Set(ctx, "pantry.inventories", []byte("[]")))

	v, err := New(dir).Get(ctx, "pantry.inventories")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
}
