package db

import (
	"errors"
)

var (
	ErrKeyNotFound = errors.New("requested key not found")
)

// ScanPageSize bounds how many rows EachRow reads per backend transaction.
var ScanPageSize = 1000

// Backend is a generic K/V persistence interface.
type Backend interface {
	Open() error
	Close() error
	Get(table string, key []byte) (value []byte, err error)
	Put(table string, key []byte, value []byte) error
	PutBatch(entries []Entry) error
	Delete(table string, keys ...[]byte) error
	Drop(tables ...string) error
	Len(table string) (n int, err error)

	// EachRow invokes fn for every row whose key starts with prefix, in key
	// order, until fn returns false.  Rows are read in pages of ScanPageSize
	// and fn is never called while a backend transaction is open, so fn may
	// itself write to the backend.
	EachRow(table string, prefix []byte, fn func(key []byte, value []byte) bool) error

	// BeginBulk and EndBulk bracket a bulk-load session.  Calls nest.
	BeginBulk() error
	EndBulk() error
}

// Entry is a single row destined for PutBatch.
type Entry struct {
	Table string
	Key   []byte
	Value []byte
}
