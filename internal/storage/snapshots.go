// Package storage persists the inventory collection as one JSON snapshot.
package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/storage/kv"
	"github.com/grovetools/pantry/pkg/models"
)

// SnapshotKey is the single key the inventory collection is stored under.
const SnapshotKey = "pantry.inventories"

// Snapshots reads and writes the whole inventory collection through a bucket.
type Snapshots struct {
	bucket   kv.Bucket
	logger   *logrus.Entry
	failures atomic.Int64
}

// New creates a snapshot store over bucket.
func New(bucket kv.Bucket, logger *logrus.Entry) *Snapshots {
	return &Snapshots{bucket: bucket, logger: logger}
}

// Load returns the persisted collection. ok is false when nothing usable is
// stored: a missing key, a read failure or an undecodable value. Those cases
// are logged, never returned. Loaded data has its back-references repaired.
func (s *Snapshots) Load(ctx context.Context) (inventories []models.Inventory, ok bool) {
	data, err := s.bucket.Get(ctx, SnapshotKey)
	if err != nil {
		if !stderrors.Is(err, kv.ErrKeyNotFound) {
			s.logger.WithError(errors.PersistenceFailed("load", err)).Warn("Reading snapshot failed, starting empty")
		}
		return nil, false
	}

	if err := json.Unmarshal(data, &inventories); err != nil {
		s.logger.WithError(err).WithField("bytes", len(data)).Warn("Snapshot is corrupt, starting empty")
		return nil, false
	}
	if inventories == nil {
		inventories = []models.Inventory{}
	}

	if fixed := models.Repair(inventories); fixed > 0 {
		s.logger.WithField("fixed", fixed).Warn("Repaired inconsistent back-references in snapshot")
	}
	s.logger.WithField("inventories", len(inventories)).Debug("Loaded snapshot")
	return inventories, true
}

// Save writes the full collection. A failure is logged and counted; the
// returned error is for callers that want it and may be ignored.
func (s *Snapshots) Save(ctx context.Context, inventories []models.Inventory) error {
	if inventories == nil {
		inventories = []models.Inventory{}
	}
	data, err := json.Marshal(inventories)
	if err == nil {
		err = s.bucket.Set(ctx, SnapshotKey, data)
	}
	if err != nil {
		s.failures.Add(1)
		perr := errors.PersistenceFailed("save", err)
		s.logger.WithError(perr).Error("Saving snapshot failed")
		return perr
	}
	s.logger.WithField("bytes", len(data)).Debug("Saved snapshot")
	return nil
}

// Failures returns how many saves have failed since creation.
func (s *Snapshots) Failures() int64 {
	return s.failures.Load()
}
