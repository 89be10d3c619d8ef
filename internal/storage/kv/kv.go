// Package kv defines the key-value bucket the snapshot store writes through.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// Bucket defines basic CRUD operations for key-value pairs in a single namespace.
type Bucket interface {
	Get(ctx context.Context, k string) (v []byte, err error)
	Set(ctx context.Context, k string, v []byte) error
	Has(ctx context.Context, k string) (found bool, err error)
	Delete(ctx context.Context, k string) error
}
