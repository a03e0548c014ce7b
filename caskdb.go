package caskdb

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Open opens a caskdb database instance, creating the log file at path if it
// does not exist, and rebuilds the in-memory index from the log.
func Open(path string, opts ...Option) (*DB, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if config.Threshold <= 0 {
		return nil, fmt.Errorf("caskdb: compaction threshold must be positive, got %d", config.Threshold)
	}
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("caskdb: pool size must be positive, got %d", config.PoolSize)
	}

	// 清理崩溃压缩遗留的临时文件
	leftovers, err := filepath.Glob(path + ".compact-*")
	if err == nil {
		for _, leftover := range leftovers {
			os.Remove(leftover)
		}
	}

	writer, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	db := &DB{
		path:    path,
		config:  config,
		writer:  writer,
		keydir:  make(map[string]entry),
		readers: newReaderPool(path, config.PoolSize),
		done:    make(chan struct{}),
	}

	if err := db.rebuild(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	if config.CompactInterval > 0 {
		go db.periodicCompact()
	}

	return db, nil
}

// Set stores a key-value pair. The write is one sequential append followed by
// an index update; if the log then exceeds the compaction threshold, the same
// call compacts before returning.
func (db *DB) Set(key, value []byte) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.closed {
		return ErrClosed
	}
	return db.set(key, value)
}

func (db *DB) set(key, value []byte) error {
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}

	payload, err := encodeRecord(&record{
		timestamp: time.Now().UnixMilli(),
		key:       key,
		value:     value,
		hasValue:  true,
	})
	if err != nil {
		return err
	}

	pos, err := db.appendRecord(payload)
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.keydir[string(key)] = entry{pos: pos, size: int64(len(payload))}
	db.mu.Unlock()

	if db.size > db.config.Threshold {
		return db.compact()
	}
	return nil
}

// Get retrieves the value associated with key. The second return is false
// when the key is absent.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, false, ErrClosed
	}

	e, ok := db.keydir[string(key)]
	if !ok {
		return nil, false, nil
	}

	f, err := db.readers.acquire()
	if err != nil {
		return nil, false, err
	}
	payload, err := readAt(f, e.pos, e.size)
	db.readers.release(f)
	if err != nil {
		return nil, false, err
	}

	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, false, err
	}
	if rec.tombstone() || !bytes.Equal(rec.key, key) {
		return nil, false, fmt.Errorf("%w: record at offset %d does not match index entry", ErrCorruptRecord, e.pos)
	}
	return rec.value, true, nil
}

// Del removes a key by appending a tombstone record. It reports whether the
// key was present.
func (db *DB) Del(key []byte) (bool, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.closed {
		return false, ErrClosed
	}
	return db.del(key)
}

func (db *DB) del(key []byte) (bool, error) {
	if len(key) > MaxKeySize {
		return false, ErrKeyTooLarge
	}

	db.mu.RLock()
	_, ok := db.keydir[string(key)]
	db.mu.RUnlock()
	if !ok {
		return false, nil
	}

	payload, err := encodeRecord(&record{
		timestamp: time.Now().UnixMilli(),
		key:       key,
	})
	if err != nil {
		return false, err
	}
	if _, err := db.appendRecord(payload); err != nil {
		return false, err
	}

	db.mu.Lock()
	delete(db.keydir, string(key))
	db.mu.Unlock()

	if db.size > db.config.Threshold {
		return true, db.compact()
	}
	return true, nil
}

// SetAll stores multiple key-value pairs under a single writer-lock
// acquisition. The pairs are not applied atomically as a group; each append
// is visible as soon as its index update lands.
func (db *DB) SetAll(pairs map[string][]byte) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.closed {
		return ErrClosed
	}
	for key, value := range pairs {
		if err := db.set([]byte(key), value); err != nil {
			return fmt.Errorf("failed to set key %q: %w", key, err)
		}
	}
	return nil
}

// GetAll retrieves the values for the given keys, skipping absent ones.
func (db *DB) GetAll(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok, err := db.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to get key %q: %w", key, err)
		}
		if ok {
			result[string(key)] = value
		}
	}
	return result, nil
}

// Len returns the number of live keys.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.keydir)
}

// Backup copies the active log into dir while no write or compaction is in
// progress.
func (db *DB) Backup(dir string) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(db.path))
	if err := copyFile(db.path, dst); err != nil {
		return fmt.Errorf("failed to copy log file: %w", err)
	}
	return nil
}

// Close closes the database. Subsequent operations return ErrClosed.
func (db *DB) Close() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	close(db.done)
	db.readers.close()

	if err := db.writer.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
