package caskdb

import (
	"errors"
	"os"
	"sync"
)

// DB is a single-file Bitcask style key-value store: an append-only log on
// disk whose live positions are fully indexed in memory. One process, one
// writer; opening the same path from two DB instances is not supported.
type DB struct {
	path   string
	config *Config

	// writeMu serializes appends, compaction and the cached size counter.
	writeMu sync.Mutex
	writer  *os.File
	size    int64

	// mu guards the keydir and the identity of the active log file. Readers
	// hold it in read mode across lookup, positioned read and decode, so a
	// compaction swap cannot happen under a pending read.
	mu      sync.RWMutex
	keydir  map[string]entry
	readers *readerPool
	closed  bool

	done chan struct{}
}

// entry locates the most recent live record of a key in the active log.
type entry struct {
	pos  int64 // payload offset, right after the length prefix
	size int64 // payload byte count
}

// prefixSize is the fixed length-prefix framing each record on disk.
const prefixSize = 8

const (
	// MaxKeySize is the maximum accepted key length in bytes.
	MaxKeySize = 64 << 10
	// MaxValueSize is the maximum accepted value length in bytes.
	MaxValueSize = 1 << 30
)

var (
	ErrCorruptRecord = errors.New("caskdb: corrupt record")
	ErrShortRead     = errors.New("caskdb: short read")
	ErrClosed        = errors.New("caskdb: database closed")
	ErrKeyTooLarge   = errors.New("caskdb: key exceeds maximum size")
	ErrValueTooLarge = errors.New("caskdb: value exceeds maximum size")
)
