package caskdb

import "time"

type Option func(*Config)

// Config is the configuration for a DB instance.
type Config struct {
	Threshold       int64
	SyncWrites      bool
	PoolSize        int
	CompactInterval time.Duration
}

// DefaultThreshold is the default compaction threshold in bytes.
const DefaultThreshold = 1 << 20

// DefaultPoolSize is the default number of pooled read handles.
const DefaultPoolSize = 8

// WithThreshold sets the compaction threshold in bytes.
func WithThreshold(bytes int64) Option {
	return func(c *Config) {
		c.Threshold = bytes
	}
}

// WithSyncWrites sets whether to fdatasync the log after every write and the
// rewritten log after each compaction. Off by default: a write is acknowledged
// once its bytes have been handed to the operating system.
func WithSyncWrites(sync bool) Option {
	return func(c *Config) {
		c.SyncWrites = sync
	}
}

// WithPoolSize sets the capacity of the read-handle pool.
func WithPoolSize(n int) Option {
	return func(c *Config) {
		c.PoolSize = n
	}
}

// WithCompactInterval enables background compaction at the given interval.
func WithCompactInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CompactInterval = interval
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Threshold: DefaultThreshold,
		PoolSize:  DefaultPoolSize,
	}
}
