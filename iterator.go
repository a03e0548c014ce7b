package caskdb

// Iterator walks a snapshot of the live keys in unspecified order.
type Iterator struct {
	db    *DB
	keys  []string
	index int
}

// Iterator creates an iterator over the live keys of the database.
func (db *DB) Iterator() *Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()

	keys := make([]string, 0, len(db.keydir))
	for k := range db.keydir {
		keys = append(keys, k)
	}

	return &Iterator{
		db:    db,
		keys:  keys,
		index: -1,
	}
}

// Next advances the iterator to the next key.
func (it *Iterator) Next() bool {
	it.index++
	return it.index < len(it.keys)
}

// Key returns the current key.
func (it *Iterator) Key() []byte {
	return []byte(it.keys[it.index])
}

// Value returns the value of the current key. A key deleted since the
// snapshot was taken reports ok=false.
func (it *Iterator) Value() ([]byte, bool, error) {
	return it.db.Get(it.Key())
}
