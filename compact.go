package caskdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Compact rewrites the log keeping exactly one record per live key, then
// atomically swaps the rewritten copy in as the active log.
func (db *DB) Compact() error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.closed {
		return ErrClosed
	}
	return db.compact()
}

// compact does the work of Compact. The caller must hold writeMu, which keeps
// any other writer out for the whole pass; readers proceed until the final
// swap takes the index write lock.
func (db *DB) compact() error {
	// 冻结存活集
	db.mu.RLock()
	live := make(map[string]entry, len(db.keydir))
	for key, e := range db.keydir {
		live[key] = e
	}
	db.mu.RUnlock()

	// The pool may still be serving concurrent readers, so compaction reads
	// through its own handle.
	src, err := os.Open(db.path)
	if err != nil {
		return fmt.Errorf("failed to open log for compaction: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(db.path), filepath.Base(db.path)+".compact-")
	if err != nil {
		return fmt.Errorf("failed to create temp log: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	// 把每个存活记录原样重写到新文件
	newKeydir := make(map[string]entry, len(live))
	prefix := make([]byte, prefixSize)
	var off int64
	for key, e := range live {
		payload, err := readAt(src, e.pos, e.size)
		if err != nil {
			discard()
			return err
		}
		binary.LittleEndian.PutUint64(prefix, uint64(len(payload)))
		if _, err := tmp.Write(prefix); err != nil {
			discard()
			return fmt.Errorf("failed to write temp log: %w", err)
		}
		if _, err := tmp.Write(payload); err != nil {
			discard()
			return fmt.Errorf("failed to write temp log: %w", err)
		}
		newKeydir[key] = entry{pos: off + prefixSize, size: e.size}
		off += prefixSize + e.size
	}

	if db.config.SyncWrites {
		if err := fdatasync(tmp); err != nil {
			discard()
			return fmt.Errorf("failed to sync temp log: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp log: %w", err)
	}

	// The replacement writer handle is opened on the temp file before the
	// rename, so the rename is the last step that can fail.
	writer, err := os.OpenFile(tmpPath, os.O_RDWR, 0644)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to open rewritten log: %w", err)
	}

	// 交换在索引写锁内进行，挡住所有跨越交换的读
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := os.Rename(tmpPath, db.path); err != nil {
		writer.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace log: %w", err)
	}
	db.writer.Close()
	db.writer = writer
	db.readers.reset(db.path)
	db.keydir = newKeydir
	db.size = off
	return nil
}

// periodicCompact periodically compacts the database until Close.
func (db *DB) periodicCompact() {
	ticker := time.NewTicker(db.config.CompactInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = db.Compact()
		case <-db.done:
			return
		}
	}
}
