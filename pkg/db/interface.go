// Package db archives crawl snapshots in MongoDB or Postgres/Supabase.
// Every store keeps one record per snapshot and nothing at article level.
package db

import (
	"database/sql"
	"errors"
	"time"
)

// ErrEmptySnapshot is returned when a snapshot without articles is saved.
var ErrEmptySnapshot = errors.New("snapshot has no articles")

// DBProvider exposes a sql.DB handle so PostgresClient and SupabaseClient
// can back the same SnapshotTable.
type DBProvider interface {
	DB() *sql.DB
}

// PoolConfig holds optional sql.DB pool tuning.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxIdle > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdle)
	}
	if p.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLife)
	}
}
