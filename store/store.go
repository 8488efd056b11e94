// Package store is the central data store: a ClickHouse-backed realization
// of the spec's "keyed table with composite primary key (pk, sk), range
// queries by sk prefix, item-level TTL" model. Each entity in §3 gets its
// own table; TTL is enforced by ClickHouse's native per-table TTL clause
// rather than a hand-rolled expiry sweep.
package store

import (
	"context"
	"fmt"

	zlog "github.com/pulsegrid/sentinel/logger"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Options configures a connection to the central store.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Store wraps a ClickHouse connection scoped to one sentinel deployment's
// database. Probes exclusively write CHECK#/LATENCY# rows; the aggregator
// exclusively writes STATE#/INCIDENT# rows; the query layer only reads.
// This one-writer-per-table rule (mirrored from §3's "ownership" rule)
// means Store needs no locking of its own.
type Store struct {
	Conn     driver.Conn
	database string
	ctx      context.Context
}

// Connect opens a connection to the ClickHouse server and ensures the
// sentinel database and its tables exist with the spec-mandated TTLs.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	log := zlog.GetLogger()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		log.Err(err).Str("addr", opts.Addr).Msg("failed to connect to ClickHouse server")
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging ClickHouse server: %w", err)
	}

	s := &Store{Conn: conn, database: opts.Database, ctx: ctx}

	if err := s.ensureDatabase(); err != nil {
		return nil, err
	}

	s2, err := s.reopenInDatabase(opts)
	if err != nil {
		return nil, err
	}

	if err := s2.createTables(); err != nil {
		return nil, err
	}
	if err := s2.applyTTLs(); err != nil {
		return nil, err
	}

	return s2, nil
}

func (s *Store) ensureDatabase() error {
	ctx := s.QueryParameters(clickhouse.Parameters{"database": s.database})
	return s.Conn.Exec(ctx, `--sql
		CREATE DATABASE IF NOT EXISTS {database:Identifier}`)
}

// reopenInDatabase reconnects scoped directly to the sentinel database so
// unqualified table names resolve without an {database:Identifier} prefix
// on every statement.
func (s *Store) reopenInDatabase(opts Options) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(s.ctx); err != nil {
		return nil, err
	}
	return &Store{Conn: conn, database: opts.Database, ctx: s.ctx}, nil
}

// QueryParameters attaches ClickHouse named parameters to the store's
// context, mirroring the teacher's ServerConn.QueryParameters helper.
func (s *Store) QueryParameters(params clickhouse.Parameters) context.Context {
	return clickhouse.Context(s.ctx, clickhouse.WithParameters(params))
}

// Context returns the store's base context.
func (s *Store) Context() context.Context {
	return s.ctx
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.Conn.Close()
}
