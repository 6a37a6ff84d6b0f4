// Package store is a small embedded key-value store used by the demo
// binary's admin surface to persist operator-configured pool sizes across
// restarts. It is deliberately outside the core runtime: the plant itself
// carries no cross-restart persistence (SPEC_FULL.md Non-goals), so nothing
// under internal/plant imports this package — only package cmd does
// (cmd/fx.go and cmd/httpadmin.go).
package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var poolConfigBucket = []byte("pool_configs")

// Store wraps a single bbolt file. One process, one file: bbolt holds an
// exclusive file lock for its lifetime, so Store is meant to be opened once
// at process start and closed at shutdown.
type Store struct {
	db *bolt.DB
}

// PoolConfig is what gets persisted per named pool: the operator-set
// worker count, so a restart resumes with the last-configured size instead
// of SPEC_FULL.md's static default.
type PoolConfig struct {
	Name        string `json:"name"`
	Concurrency int    `json:"concurrency"`
}

// Open creates/opens the bbolt file at path and ensures the pool-config
// bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(poolConfigBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePoolConfig persists cfg, keyed by cfg.Name, overwriting any prior
// value.
func (s *Store) SavePoolConfig(cfg PoolConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("store: marshal pool config: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(poolConfigBucket).Put([]byte(cfg.Name), data)
	})
}

// LoadPoolConfigs returns every persisted pool config, for the admin
// surface to replay at startup.
func (s *Store) LoadPoolConfigs() ([]PoolConfig, error) {
	var out []PoolConfig
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(poolConfigBucket).ForEach(func(k, v []byte) error {
			var cfg PoolConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("store: unmarshal pool config %q: %w", k, err)
			}
			out = append(out, cfg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
