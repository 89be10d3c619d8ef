// Package kvmysql stores bucket values in a single MySQL table.
package kvmysql

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	"github.com/grovetools/pantry/internal/storage/kv"
)

// Schema contains the MySQL schema for the bucket table.
//
//go:embed schema.sql
var Schema string

// KVMySQL is a MySQL-backed key-value bucket.
type KVMySQL struct {
	db *sql.DB
}

type config struct {
	driver string
	dsn    string
	db     *sql.DB
}

// Option allows configuring a KVMySQL.
type Option func(*config)

// WithDSN sets the MySQL data source name.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithDriver sets a custom MySQL driver.
//
// Default driver is "mysql".
// Value is ignored if WithDB is used.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// WithDB sets a custom *sql.DB.
func WithDB(db *sql.DB) Option {
	return func(c *config) {
		c.db = db
	}
}

// New connects to MySQL and makes sure the bucket table exists.
// Callers import the driver (github.com/go-sql-driver/mysql).
func New(ctx context.Context, opts ...Option) (*KVMySQL, error) {
	cfg := &config{driver: "mysql"}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.db == nil {
		cfg.db, err = sql.Open(cfg.driver, cfg.dsn)
		if err != nil {
			return nil, err
		}
	}
	if err = cfg.db.PingContext(ctx); err != nil {
		return nil, err
	}
	if _, err = cfg.db.ExecContext(ctx, Schema); err != nil {
		return nil, err
	}
	return &KVMySQL{db: cfg.db}, nil
}

func (s *KVMySQL) Get(ctx context.Context, k string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT kv_value FROM pantry_kv WHERE kv_key = ?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrKeyNotFound
	}
	return v, err
}

func (s *KVMySQL) Set(ctx context.Context, k string, v []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pantry_kv (kv_key, kv_value) VALUES (?, ?) AS new
ON DUPLICATE KEY UPDATE kv_value = new.kv_value`, k, v)
	return err
}

func (s *KVMySQL) Has(ctx context.Context, k string) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) > 0 FROM pantry_kv WHERE kv_key = ?`, k).Scan(&found)
	return found, err
}

func (s *KVMySQL) Delete(ctx context.Context, k string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pantry_kv WHERE kv_key = ?`, k)
	return err
}

// Close closes the underlying database handle.
func (s *KVMySQL) Close() error {
	return s.db.Close()
}
