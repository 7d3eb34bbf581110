package db

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestBoltBackend(t *testing.T) *BoltBackend {
	t.Helper()
	be := NewBoltBackend(NewBoltConfig(filepath.Join(t.TempDir(), "test.bolt")))
	if err := be.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := be.Close(); err != nil {
			t.Error(err)
		}
	})
	return be
}

func TestBoltBackend(t *testing.T) {
	testBackend(t, newTestBoltBackend(t))
}

func TestBoltBackendBulkNests(t *testing.T) {
	be := newTestBoltBackend(t)

	for i := 0; i < 2; i++ {
		if err := be.BeginBulk(); err != nil {
			t.Fatal(err)
		}
	}
	if !be.db.NoSync {
		t.Fatal("Expected NoSync during bulk mode")
	}
	if err := be.EndBulk(); err != nil {
		t.Fatal(err)
	}
	if !be.db.NoSync {
		t.Fatal("Expected NoSync to survive inner EndBulk")
	}
	if err := be.EndBulk(); err != nil {
		t.Fatal(err)
	}
	if be.db.NoSync {
		t.Fatal("Expected NoSync to be cleared after outer EndBulk")
	}
	if err := be.EndBulk(); err != nil {
		t.Fatalf("Unbalanced EndBulk should be harmless, got err=%s", err)
	}
}

// testBackend exercises the Backend contract; shared by every backend test.
func testBackend(t *testing.T, be Backend) {
	const table = TableRawPages

	if err := be.Drop(table); err != nil {
		t.Fatal(err)
	}

	if _, err := be.Get(table, []byte("does-not-exist")); err != ErrKeyNotFound {
		t.Errorf("Expected err=%s but actual=%s", ErrKeyNotFound, err)
	}

	if err := be.Put(table, []byte("hello"), []byte("world")); err != nil {
		t.Error(err)
	}

	v, err := be.Get(table, []byte("hello"))
	if err != nil {
		t.Error(err)
	}

	if expected, actual := "world", string(v); actual != expected {
		t.Errorf("Retrieved value did not match inserted value, expected=%v but actual=%v", expected, actual)
	}

	if err := be.Put(table, []byte("hello"), []byte("again")); err != nil {
		t.Error(err)
	}
	if v, _ = be.Get(table, []byte("hello")); string(v) != "again" {
		t.Errorf("Expected overwrite to stick, actual=%q", string(v))
	}

	entries := []Entry{}
	for i := 0; i < 25; i++ {
		entries = append(entries, Entry{Table: table, Key: []byte(fmt.Sprintf("p/%03d", i)), Value: []byte(fmt.Sprint(i))})
	}
	if err := be.PutBatch(entries); err != nil {
		t.Fatal(err)
	}

	if n, err := be.Len(table); err != nil {
		t.Error(err)
	} else if expected, actual := 26, n; actual != expected {
		t.Errorf("Expected len=%v but actual=%v", expected, actual)
	}

	// Small pages force several read transactions, and the callback writes.
	defer func(orig int) { ScanPageSize = orig }(ScanPageSize)
	ScanPageSize = 4

	var (
		seen [][]byte
		prev []byte
	)
	if err := be.EachRow(table, []byte("p/"), func(k []byte, v []byte) bool {
		if prev != nil && bytes.Compare(prev, k) >= 0 {
			t.Errorf("Keys out of order: %q then %q", prev, k)
		}
		prev = k
		seen = append(seen, k)
		return be.Put(table, append([]byte("q/"), k...), v) == nil
	}); err != nil {
		t.Fatal(err)
	}
	if expected, actual := 25, len(seen); actual != expected {
		t.Errorf("Expected %v rows under prefix but actual=%v", expected, actual)
	}

	n := 0
	if err := be.EachRow(table, []byte("p/"), func(_ []byte, _ []byte) bool {
		n++
		return n < 7
	}); err != nil {
		t.Fatal(err)
	}
	if expected, actual := 7, n; actual != expected {
		t.Errorf("Expected early stop after %v rows but actual=%v", expected, actual)
	}

	if err := be.Delete(table, []byte("hello")); err != nil {
		t.Error(err)
	}
	if _, err := be.Get(table, []byte("hello")); err != ErrKeyNotFound {
		t.Errorf("Expected deleted key to be gone, err=%v", err)
	}

	if err := be.Drop(table); err != nil {
		t.Fatal(err)
	}
	if n, err := be.Len(table); err != nil {
		t.Error(err)
	} else if n != 0 {
		t.Errorf("Expected empty table after drop but len=%v", n)
	}
}
