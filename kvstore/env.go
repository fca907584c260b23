// Package kvstore is the embedded storage layer: a single bbolt file
// holding a content-addressed object bucket plus one bucket per
// mutable namespace, with a crash-safe JSON manifest sidecar recording
// the persisted chain tip.
package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"conclave.dev/node/hashes"
	"conclave.dev/node/xcrypto"
)

var bucketObjects = []byte("objects")

// Env owns the single bbolt database for a data directory. Opened once
// per process, mirroring the teacher's store.DB/bolt.DB ownership.
type Env struct {
	dir      string
	db       *bolt.DB
	manifest *Manifest
}

// Open opens (creating if absent) the kv environment rooted at dir.
func Open(dir string) (*Env, error) {
	if dir == "" {
		return nil, fmt.Errorf("kvstore: dir required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("kvstore: mkdir: %w", err)
	}

	path := filepath.Join(dir, "kv.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open bbolt: %w", err)
	}

	e := &Env{dir: dir, db: bdb}
	if err := e.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("kvstore: create objects bucket: %w", err)
	}

	m, err := readManifest(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		_ = bdb.Close()
		return nil, fmt.Errorf("kvstore: read manifest: %w", err)
	}
	if m.SchemaVersion > SchemaVersionV1 {
		_ = bdb.Close()
		return nil, fmt.Errorf("kvstore: manifest schema_version %d > supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	e.manifest = m
	return e, nil
}

func (e *Env) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *Env) Dir() string { return e.dir }

func (e *Env) Manifest() *Manifest {
	if e == nil {
		return nil
	}
	return e.manifest
}

func (e *Env) SetManifest(m *Manifest) error {
	if e == nil {
		return fmt.Errorf("kvstore: nil env")
	}
	if err := writeManifestAtomic(e.dir, m); err != nil {
		return err
	}
	e.manifest = m
	return nil
}

// namespaceBucket derives the bucket name for a mutable namespace. Each
// namespace gets its own bbolt bucket rather than a shared one keyed by
// hash256(ns) XOR userKey, so bucket cursors can range-scan a single
// index (e.g. SpendTips) without colliding with others.
func namespaceBucket(ns string) []byte {
	return []byte("ns:" + ns)
}

func (e *Env) ensureNamespace(tx *bolt.Tx, ns string) (*bolt.Bucket, error) {
	return tx.CreateBucketIfNotExists(namespaceBucket(ns))
}

// PutImmutable stores value under its content address hash256(value)
// and returns that address. Re-storing identical content is a no-op.
func (e *Env) PutImmutable(value []byte) (hashes.Hash32, error) {
	addr := xcrypto.Hash256(value)
	err := e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).Put(addr[:], value)
	})
	return addr, err
}

// GetImmutable fetches the object stored at addr and re-hashes it,
// returning StorageCorruption if the stored bytes no longer match the
// address that names them.
func (e *Env) GetImmutable(addr hashes.Hash32) ([]byte, bool, error) {
	var out []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketObjects).Get(addr[:])
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if out == nil {
		return nil, false, nil
	}
	if got := xcrypto.Hash256(out); got != addr {
		return nil, false, &StorageCorruption{Addr: addr, Got: got}
	}
	return out, true, nil
}

// PutMutable writes value at key within namespace ns.
func (e *Env) PutMutable(ns string, key []byte, value []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		b, err := e.ensureNamespace(tx, ns)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// GetMutable reads the value at key within namespace ns.
func (e *Env) GetMutable(ns string, key []byte) ([]byte, bool, error) {
	var out []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(namespaceBucket(ns))
		if b == nil {
			return nil
		}
		v := b.Get(key)
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// DeleteMutable removes key within namespace ns, if present.
func (e *Env) DeleteMutable(ns string, key []byte) error {
	return e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(namespaceBucket(ns))
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

// ForEachMutable ranges over every key in namespace ns in bbolt's
// natural byte order, stopping early if fn returns false.
func (e *Env) ForEachMutable(ns string, fn func(key, value []byte) bool) error {
	return e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(namespaceBucket(ns))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
}

var singletonKey = []byte("singleton")

// PutSingleton stores value as the sole entry of namespace ns.
func (e *Env) PutSingleton(ns string, value []byte) error {
	return e.PutMutable(ns, singletonKey, value)
}

// GetSingleton reads the sole entry of namespace ns.
func (e *Env) GetSingleton(ns string) ([]byte, bool, error) {
	return e.GetMutable(ns, singletonKey)
}

// Update runs fn inside a single bbolt write transaction, giving the
// ledger package's submit a single-writer, all-or-nothing commit.
func (e *Env) Update(fn func(tx *Tx) error) error {
	return e.db.Update(func(btx *bolt.Tx) error {
		return fn(&Tx{env: e, btx: btx})
	})
}

// Tx is a write transaction handed to Env.Update's callback.
type Tx struct {
	env *Env
	btx *bolt.Tx
}

func (t *Tx) PutImmutable(value []byte) (hashes.Hash32, error) {
	addr := xcrypto.Hash256(value)
	if err := t.btx.Bucket(bucketObjects).Put(addr[:], value); err != nil {
		return hashes.Hash32{}, err
	}
	return addr, nil
}

func (t *Tx) GetImmutable(addr hashes.Hash32) ([]byte, bool, error) {
	v := t.btx.Bucket(bucketObjects).Get(addr[:])
	if v == nil {
		return nil, false, nil
	}
	out := append([]byte(nil), v...)
	if got := xcrypto.Hash256(out); got != addr {
		return nil, false, &StorageCorruption{Addr: addr, Got: got}
	}
	return out, true, nil
}

func (t *Tx) PutMutable(ns string, key, value []byte) error {
	b, err := t.env.ensureNamespace(t.btx, ns)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t *Tx) GetMutable(ns string, key []byte) ([]byte, bool, error) {
	b := t.btx.Bucket(namespaceBucket(ns))
	if b == nil {
		return nil, false, nil
	}
	v := b.Get(key)
	if v == nil {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (t *Tx) DeleteMutable(ns string, key []byte) error {
	b := t.btx.Bucket(namespaceBucket(ns))
	if b == nil {
		return nil
	}
	return b.Delete(key)
}

func (t *Tx) PutSingleton(ns string, value []byte) error {
	return t.PutMutable(ns, singletonKey, value)
}

func (t *Tx) GetSingleton(ns string) ([]byte, bool, error) {
	return t.GetMutable(ns, singletonKey)
}

// StorageCorruption reports that stored bytes no longer hash to the
// address under which they were filed.
type StorageCorruption struct {
	Addr hashes.Hash32
	Got  hashes.Hash32
}

func (e *StorageCorruption) Error() string {
	return fmt.Sprintf("kvstore: storage corruption at %s (content hashes to %s)", e.Addr, e.Got)
}
