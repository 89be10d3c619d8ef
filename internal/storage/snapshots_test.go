package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/config"
	"github.com/grovetools/pantry/internal/storage/kv/kvdiskv"
	"github.com/grovetools/pantry/internal/storage/kv/kvmap"
	"github.com/grovetools/pantry/pkg/ident"
	"github.com/grovetools/pantry/pkg/models"
)

type failingBucket struct{ *kvmap.KVMap }

func (failingBucket) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "storage"), hook
}

func sampleInventories() []models.Inventory {
	ids := ident.NewStaticIDs("inv-1", "item-1", "unit-1", "unit-2", "inv-2")
	inv := models.NewInventory(ids, "pantry", "alice")
	inv.Admins = []string{"bob"}
	inv.Writables = []string{"carol"}
	inv.Readables = []string{"dave"}
	ean := "4006381333931"
	item := models.NewItem(ids, inv.UUID, "milk", &ean)
	item.Units = append(item.Units,
		models.NewUnit(ids, item.UUID, inv.UUID, "carton 1"),
		models.NewUnit(ids, item.UUID, inv.UUID, "carton 2"))
	inv.Items = append(inv.Items, item)
	return []models.Inventory{inv, models.NewInventory(ids, "empty", "alice")}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	s := New(kvdiskv.New(t.TempDir()), logger)

	want := sampleInventories()
	require.NoError(t, s.Save(ctx, want))

	got, ok := s.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Zero(t, s.Failures())
}

func TestLoadNothingStored(t *testing.T) {
	logger, hook := newTestLogger()
	s := New(kvmap.NewBucket(), logger)

	got, ok := s.Load(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, e.Level, "a missing snapshot is not a warning")
	}
}

func TestLoadCorruptIsNothing(t *testing.T) {
	ctx := context.Background()
	logger, hook := newTestLogger()
	bucket := kvmap.NewBucket()
	require.NoError(t, bucket.Set(ctx, SnapshotKey, []byte("{not json")))

	got, ok := New(bucket, logger).Load(ctx)
	assert.False(t, ok)
	assert.Nil(t, got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLoadRepairsBackReferences(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	bucket := kvmap.NewBucket()
	require.NoError(t, bucket.Set(ctx, SnapshotKey, []byte(
		`[{"uuid":"inv","name":"n","owner":"o","items":[{"uuid":"item","inventory_uuid":"stale","name":"x","units":[{"uuid":"u","item_uuid":"item","inventory_uuid":"stale","name":"y"}]}]}]`)))

	got, ok := New(bucket, logger).Load(ctx)
	require.True(t, ok)
	assert.Empty(t, models.CheckConsistency(got))
	assert.Equal(t, []string{}, got[0].Admins)
}

func TestSaveFailureIsCounted(t *testing.T) {
	logger, hook := newTestLogger()
	s := New(failingBucket{kvmap.NewBucket()}, logger)

	err := s.Save(context.Background(), sampleInventories())
	require.Error(t, err)
	assert.Equal(t, int64(1), s.Failures())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestSaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	bucket := kvmap.NewBucket()
	require.NoError(t, New(bucket, logger).Save(ctx, nil))

	data, err := bucket.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()

	b, closeFn, err := OpenBucket(ctx, config.StorageConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &kvmap.KVMap{}, b)
	assert.NoError(t, closeFn())

	b, _, err = OpenBucket(ctx, config.StorageConfig{Backend: config.BackendDiskv, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &kvdiskv.KVDiskv{}, b)

	_, closeFn, err = OpenBucket(ctx, config.StorageConfig{Backend: "floppy"})
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
