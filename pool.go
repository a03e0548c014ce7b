package caskdb

import (
	"fmt"
	"os"
	"sync"
)

// readerPool caches a bounded number of read-only handles to the active log.
// Handles are created lazily; acquire blocks once every handle is out.
type readerPool struct {
	mu   sync.Mutex
	path string
	free chan *os.File
	made int
	cap  int
}

func newReaderPool(path string, capacity int) *readerPool {
	return &readerPool{
		path: path,
		free: make(chan *os.File, capacity),
		cap:  capacity,
	}
}

// acquire returns a read handle, creating one while the pool is below
// capacity, otherwise blocking until release returns one.
func (p *readerPool) acquire() (*os.File, error) {
	select {
	case f := <-p.free:
		return f, nil
	default:
	}

	p.mu.Lock()
	if p.made < p.cap {
		p.made++
		path := p.path
		p.mu.Unlock()
		f, err := os.Open(path)
		if err != nil {
			p.mu.Lock()
			p.made--
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to open read handle: %w", err)
		}
		return f, nil
	}
	p.mu.Unlock()
	return <-p.free, nil
}

// release returns a handle obtained from acquire.
func (p *readerPool) release(f *os.File) {
	p.free <- f
}

// reset discards all pooled handles and points subsequent acquires at path.
// Invoked only during the compaction swap, under the index write lock: no
// reader is mid-flight, so every created handle is back in the pool.
func (p *readerPool) reset(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	p.drain()
}

// close releases every pooled handle.
func (p *readerPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drain()
}

func (p *readerPool) drain() {
	for {
		select {
		case f := <-p.free:
			f.Close()
			p.made--
		default:
			return
		}
	}
}
