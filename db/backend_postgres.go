package db

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

var (
	DefaultPostgresConnString = "dbname=wikigraph sslmode=disable"
)

type PostgresConfig struct {
	ConnString string
}

func NewPostgresConfig(connString string) *PostgresConfig {
	if len(connString) == 0 {
		connString = DefaultPostgresConnString
	}
	cfg := &PostgresConfig{
		ConnString: connString,
	}
	return cfg
}

func (cfg PostgresConfig) Type() Type {
	return Postgres
}

// PostgresBackend keeps each logical table as a (key bytea, value bytea)
// relation.
type PostgresBackend struct {
	config  *PostgresConfig
	db      *sql.DB
	created sync.Map // Relations known to exist.
	mu      sync.Mutex
}

func NewPostgresBackend(config *PostgresConfig) *PostgresBackend {
	be := &PostgresBackend{
		config: config,
	}
	return be
}

func (be *PostgresBackend) Open() error {
	be.mu.Lock()
	defer be.mu.Unlock()

	if be.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", be.config.ConnString)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	be.db = db

	for _, table := range tables {
		if err := be.ensure(table); err != nil {
			return err
		}
	}
	return nil
}

func (be *PostgresBackend) Close() error {
	be.mu.Lock()
	defer be.mu.Unlock()

	if be.db == nil {
		return nil
	}

	if err := be.db.Close(); err != nil {
		return err
	}

	be.db = nil

	return nil
}

// relation maps a logical table name to a quoted SQL identifier.
func relation(table string) string {
	return pq.QuoteIdentifier(strings.ReplaceAll(table, "-", "_"))
}

func (be *PostgresBackend) ensure(table string) error {
	if _, ok := be.created.Load(table); ok {
		return nil
	}
	_, err := be.db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key bytea PRIMARY KEY,
	value bytea NOT NULL
)`, relation(table)))
	if err != nil {
		return fmt.Errorf("creating table %q: %w", table, err)
	}
	be.created.Store(table, struct{}{})
	return nil
}

func (be *PostgresBackend) Get(table string, key []byte) ([]byte, error) {
	if err := be.ensure(table); err != nil {
		return nil, err
	}
	var v []byte
	row := be.db.QueryRow(fmt.Sprintf(`SELECT value FROM %s WHERE key=$1`, relation(table)), key)
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("getting key=%q from %v: %w", string(key), table, err)
	}
	return v, nil
}

const pgUpsert = `INSERT INTO %s (key, value) VALUES ($1, $2)
    ON CONFLICT (key)
    DO UPDATE SET
	value=EXCLUDED.value`

func (be *PostgresBackend) Put(table string, key []byte, value []byte) error {
	if err := be.ensure(table); err != nil {
		return err
	}
	if _, err := be.db.Exec(fmt.Sprintf(pgUpsert, relation(table)), key, value); err != nil {
		return fmt.Errorf("inserting key=%q into %v: %w", string(key), table, err)
	}
	return nil
}

func (be *PostgresBackend) PutBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, entry := range entries {
		if err := be.ensure(entry.Table); err != nil {
			return err
		}
	}
	tx, err := be.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	for _, entry := range entries {
		if _, err := tx.Exec(fmt.Sprintf(pgUpsert, relation(entry.Table)), entry.Key, entry.Value); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Errorf("Rolling back batch after error=%s also failed: %s", err, rbErr)
			}
			return fmt.Errorf("inserting key=%q into %v: %w", string(entry.Key), entry.Table, err)
		}
	}
	return tx.Commit()
}

func (be *PostgresBackend) Delete(table string, keys ...[]byte) error {
	if err := be.ensure(table); err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := be.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE key=$1`, relation(table)), key); err != nil {
			return fmt.Errorf("deleting key=%q from %v: %w", string(key), table, err)
		}
	}
	return nil
}

// Drop empties the named tables.
func (be *PostgresBackend) Drop(tables ...string) error {
	for _, table := range tables {
		if _, err := be.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, relation(table))); err != nil {
			return fmt.Errorf("dropping table=%v: %w", table, err)
		}
		be.created.Delete(table)
		if err := be.ensure(table); err != nil {
			return err
		}
	}
	return nil
}

func (be *PostgresBackend) Len(table string) (int, error) {
	if err := be.ensure(table); err != nil {
		return 0, err
	}
	var n int64
	row := be.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, relation(table)))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("getting length of table=%v: %w", table, err)
	}
	return int(n), nil
}

// EachRow uses keyset pagination; bytea compares bytewise, matching the bolt
// key order.
func (be *PostgresBackend) EachRow(table string, prefix []byte, fn func(key []byte, value []byte) bool) error {
	if err := be.ensure(table); err != nil {
		return err
	}
	type row struct {
		k, v []byte
	}
	var (
		first = fmt.Sprintf(`SELECT key, value FROM %s WHERE key >= $1 ORDER BY key ASC LIMIT $2`, relation(table))
		next  = fmt.Sprintf(`SELECT key, value FROM %s WHERE key > $1 ORDER BY key ASC LIMIT $2`, relation(table))
		after []byte
	)
	for {
		var (
			rows *sql.Rows
			err  error
		)
		if after == nil {
			rows, err = be.db.Query(first, append([]byte{}, prefix...), ScanPageSize)
		} else {
			rows, err = be.db.Query(next, after, ScanPageSize)
		}
		if err != nil {
			return fmt.Errorf("scanning %v: %w", table, err)
		}
		page := make([]row, 0, ScanPageSize)
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.k, &r.v); err != nil {
				rows.Close()
				return fmt.Errorf("scanning %v row: %w", table, err)
			}
			page = append(page, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, r := range page {
			if !bytes.HasPrefix(r.k, prefix) {
				return nil
			}
			if !fn(r.k, r.v) {
				return nil
			}
		}
		if len(page) < ScanPageSize {
			return nil
		}
		after = page[len(page)-1].k
	}
}

// BeginBulk is a no-op; every statement on the pool is already its own
// transaction.
func (be *PostgresBackend) BeginBulk() error {
	log.Debug("Postgres backend has no bulk mode")
	return nil
}

func (be *PostgresBackend) EndBulk() error {
	return nil
}
