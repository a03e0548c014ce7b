package caskdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestCompactReclaimsSpace(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "data.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for round := 0; round < 10; round++ {
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("key-%d", i)
			value := []byte(fmt.Sprintf("value-%d-%d", i, round))
			if err := db.Set([]byte(key), value); err != nil {
				t.Fatal(err)
			}
		}
	}
	for i := 5; i < 10; i++ {
		if _, err := db.Del([]byte(fmt.Sprintf("key-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if after.Size() >= before.Size() {
		t.Errorf("compaction did not shrink the log: %d -> %d", before.Size(), after.Size())
	}

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, ok, err := db.Get([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Get %s after compaction failed: %v, %v", key, err, ok)
		}
		want := []byte(fmt.Sprintf("value-%d-9", i))
		if !bytes.Equal(value, want) {
			t.Errorf("%s: got %q, want %q", key, value, want)
		}
	}
	for i := 5; i < 10; i++ {
		if _, ok, _ := db.Get([]byte(fmt.Sprintf("key-%d", i))); ok {
			t.Errorf("deleted key-%d survived compaction", i)
		}
	}
}

func TestCompactIdempotent(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "data.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 20; i++ {
		if err := db.Set([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}
	first, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}
	second, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if first.Size() != second.Size() {
		t.Errorf("second compaction changed size: %d -> %d", first.Size(), second.Size())
	}
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, ok, err := db.Get([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Get %s failed: %v, %v", key, err, ok)
		}
		if !bytes.Equal(value, []byte(fmt.Sprintf("value-%d", i))) {
			t.Errorf("%s: got %q", key, value)
		}
	}
}

func TestCompactEmpty(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "data.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("compacted empty log has size %d, want 0", info.Size())
	}

	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if value, ok, _ := db.Get([]byte("k")); !ok || !bytes.Equal(value, []byte("v")) {
		t.Errorf("Set after empty compaction: got %q, %v", value, ok)
	}
}

func TestCompactThenReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "data.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		if err := db.Set([]byte(fmt.Sprintf("key-%d", i%10)), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Del([]byte("key-0")); err != nil {
		t.Fatal(err)
	}
	if err := db.Compact(); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, ok, _ := db.Get([]byte("key-0")); ok {
		t.Error("deleted key-0 present after compact+reopen")
	}
	for i := 1; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, ok, err := db.Get([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Get %s failed: %v, %v", key, err, ok)
		}
		want := []byte(fmt.Sprintf("value-%d", 20+i))
		if !bytes.Equal(value, want) {
			t.Errorf("%s: got %q, want %q", key, value, want)
		}
	}
}

func TestCompactConcurrentReaders(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := Open(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	const numKeys = 50
	for i := 0; i < numKeys; i++ {
		if err := db.Set([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	const numReaders = 4
	const numOps = 500

	var wg sync.WaitGroup
	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				n := (id + j) % numKeys
				key := fmt.Sprintf("key-%d", n)
				value, ok, err := db.Get([]byte(key))
				if err != nil {
					t.Errorf("Get failed: %v", err)
					continue
				}
				if !ok || !bytes.Equal(value, []byte(fmt.Sprintf("value-%d", n))) {
					t.Errorf("%s: got %q, %v", key, value, ok)
				}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			if err := db.Compact(); err != nil {
				t.Errorf("Compact failed: %v", err)
			}
		}
	}()

	wg.Wait()
}

func TestBackup(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := Open(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 10; i++ {
		if err := db.Set([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatal(err)
		}
	}

	backupDir := filepath.Join(dir, "backup")
	if err := db.Backup(backupDir); err != nil {
		t.Fatal(err)
	}

	restored, err := Open(filepath.Join(backupDir, "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer restored.Close()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, ok, err := restored.Get([]byte(key))
		if err != nil || !ok {
			t.Fatalf("Get %s from backup failed: %v, %v", key, err, ok)
		}
		if !bytes.Equal(value, []byte(fmt.Sprintf("value-%d", i))) {
			t.Errorf("%s: got %q", key, value)
		}
	}
}

func TestIterator(t *testing.T) {
	dir, err := os.MkdirTemp("", "caskdb-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := Open(filepath.Join(dir, "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		if err := db.Set([]byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Set([]byte("d"), []byte("4")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Del([]byte("d")); err != nil {
		t.Fatal(err)
	}

	got := make(map[string]string)
	it := db.Iterator()
	for it.Next() {
		value, ok, err := it.Value()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			continue
		}
		got[string(it.Key())] = string(value)
	}

	if len(got) != len(want) {
		t.Fatalf("iterator visited %d keys, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %q, want %q", k, got[k], v)
		}
	}
}
