// Package kvdiskv wraps diskv to the kv.Bucket interface.
package kvdiskv

import (
	"context"
	"errors"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"

	"github.com/grovetools/pantry/internal/storage/kv"
)

// KVDiskv is an on-disk key-value bucket.
type KVDiskv struct {
	diskv *diskv.Diskv
}

// FlatTransform stores every key directly under the base path.
func FlatTransform(_ string) []string { return []string{} }

// New creates a bucket rooted at path with a small read cache.
func New(path string) *KVDiskv {
	return NewBucket(diskv.New(diskv.Options{
		BasePath:     path,
		Transform:    FlatTransform,
		CacheSizeMax: 1024 * 1024,
	}))
}

func NewBucket(dv *diskv.Diskv) *KVDiskv {
	return &KVDiskv{diskv: dv}
}

func (s *KVDiskv) Get(_ context.Context, k string) ([]byte, error) {
	v, err := s.diskv.Read(k)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, kv.ErrKeyNotFound
	}
	return v, err
}

func (s *KVDiskv) Set(_ context.Context, k string, v []byte) error {
	return s.diskv.Write(k, v)
}

func (s *KVDiskv) Has(_ context.Context, k string) (bool, error) {
	return s.diskv.Has(k), nil
}

func (s *KVDiskv) Delete(_ context.Context, k string) error {
	err := s.diskv.Erase(k)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
