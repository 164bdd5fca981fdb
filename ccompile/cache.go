package ccompile

import (
	"time"

	"go.etcd.io/bbolt"

	scierr "github.com/compiledtrees/compiledtrees/pkg/errors"
)

const modulesBucket = "modules" // bucket mapping sha256(source) -> module bytes

// Cache is a persistent store of compiled modules keyed by the SHA-256 of
// their generated source. Because code generation is byte-deterministic,
// recompiling the same model can be replaced by a single read, which matters
// for large forests where the native compiler dominates build latency.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens (creating if necessary) a cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, scierr.Wrap(err, "open module cache")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(modulesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, scierr.Wrap(err, "create modules bucket")
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached module bytes for the given source hash, if present.
func (c *Cache) Get(key [32]byte) ([]byte, bool, error) {
	var module []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(modulesBucket)).Get(key[:])
		if v != nil {
			module = make([]byte, len(v))
			copy(module, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, scierr.Wrap(err, "read module cache")
	}
	return module, module != nil, nil
}

// Put stores module bytes under the given source hash, overwriting any
// previous entry for the same source.
func (c *Cache) Put(key [32]byte, module []byte) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(modulesBucket)).Put(key[:], module)
	})
	if err != nil {
		return scierr.Wrap(err, "write module cache")
	}
	return nil
}
