package db

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

type BoltConfig struct {
	DBFile      string
	BoltOptions *bolt.Options
}

func NewBoltConfig(dbFilename string) *BoltConfig {
	cfg := &BoltConfig{
		DBFile: dbFilename,
		BoltOptions: &bolt.Options{
			Timeout: 1 * time.Second,
		},
	}
	return cfg
}

func (cfg BoltConfig) Type() Type {
	return Bolt
}

type BoltBackend struct {
	config    *BoltConfig
	db        *bolt.DB
	bulkDepth int
	mu        sync.Mutex
}

func NewBoltBackend(config *BoltConfig) *BoltBackend {
	be := &BoltBackend{
		config: config,
	}
	return be
}

func (be *BoltBackend) Open() error {
	be.mu.Lock()
	defer be.mu.Unlock()

	if be.db != nil {
		return nil
	}

	db, err := bolt.Open(be.config.DBFile, 0600, be.config.BoltOptions)
	if err != nil {
		return err
	}
	be.db = db

	if err := be.initDB(); err != nil {
		return err
	}

	return nil
}

func (be *BoltBackend) Close() error {
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

func (be *BoltBackend) initDB() error {
	return be.db.Update(func(tx *bolt.Tx) error {
		for _, name := range tables {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("initDB: creating bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

func (be *BoltBackend) Get(table string, key []byte) ([]byte, error) {
	var v []byte
	if err := be.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return ErrKeyNotFound
		}
		if v = b.Get(key); v == nil {
			return ErrKeyNotFound
		}
		// Values are only valid for the life of the transaction.
		v = bytes.Clone(v)
		return nil
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// Put goes through DB.Batch so that concurrent writers share commits.
func (be *BoltBackend) Put(table string, key []byte, value []byte) error {
	return be.db.Batch(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

func (be *BoltBackend) PutBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return be.db.Batch(func(tx *bolt.Tx) error {
		for _, entry := range entries {
			b, err := tx.CreateBucketIfNotExists([]byte(entry.Table))
			if err != nil {
				return err
			}
			if err = b.Put(entry.Key, entry.Value); err != nil {
				return fmt.Errorf("putting key=%q into %v: %w", string(entry.Key), entry.Table, err)
			}
		}
		return nil
	})
}

func (be *BoltBackend) Delete(table string, keys ...[]byte) error {
	return be.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Drop empties the named tables.
func (be *BoltBackend) Drop(tables ...string) error {
	return be.db.Update(func(tx *bolt.Tx) error {
		for _, table := range tables {
			log.WithField("bucket", table).Debug("dropping")
			if err := tx.DeleteBucket([]byte(table)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket([]byte(table)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (be *BoltBackend) Len(table string) (int, error) {
	var n int
	if err := be.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, err
	}
	return n, nil
}

func (be *BoltBackend) EachRow(table string, prefix []byte, fn func(key []byte, value []byte) bool) error {
	type row struct {
		k, v []byte
	}
	var after []byte
	for {
		page := make([]row, 0, ScanPageSize)
		if err := be.db.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(table))
			if b == nil {
				return nil
			}
			var (
				c    = b.Cursor()
				k, v []byte
			)
			switch {
			case after != nil:
				if k, v = c.Seek(after); k != nil && bytes.Equal(k, after) {
					k, v = c.Next()
				}
			case len(prefix) > 0:
				k, v = c.Seek(prefix)
			default:
				k, v = c.First()
			}
			for ; k != nil && bytes.HasPrefix(k, prefix) && len(page) < ScanPageSize; k, v = c.Next() {
				page = append(page, row{k: bytes.Clone(k), v: bytes.Clone(v)})
			}
			return nil
		}); err != nil {
			return err
		}
		for _, r := range page {
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

// BeginBulk turns off fsync for the duration of a bulk load.
func (be *BoltBackend) BeginBulk() error {
	be.mu.Lock()
	defer be.mu.Unlock()

	be.bulkDepth++
	if be.bulkDepth == 1 {
		log.WithField("file", be.config.DBFile).Debug("Entering bulk mode")
		be.db.NoSync = true
	}
	return nil
}

func (be *BoltBackend) EndBulk() error {
	be.mu.Lock()
	defer be.mu.Unlock()

	if be.bulkDepth == 0 {
		return nil
	}
	be.bulkDepth--
	if be.bulkDepth > 0 {
		return nil
	}
	be.db.NoSync = false
	log.WithField("file", be.config.DBFile).Debug("Leaving bulk mode")
	return be.db.Sync()
}
