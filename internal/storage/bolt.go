package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var dataBucket = []byte("h2kv")

// BoltBackend is a Backend backed by a single bbolt database file with
// one bucket. Keys are stored as raw path bytes, which bolt orders
// lexicographically by byte value, matching spec's requirement that
// iteration and prefix scans follow byte order.
type BoltBackend struct {
	db      *bolt.DB
	updates chan string
}

// OpenBolt opens (creating if necessary) a bbolt database at path inside
// dir, with permissions restricted to the owner.
func OpenBolt(dir string) (*BoltBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	dbPath := filepath.Join(dir, "h2kv.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dataBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create bucket: %w", err)
	}

	return &BoltBackend{
		db:      db,
		updates: make(chan string, 1024),
	}, nil
}

// Get implements Backend.
func (b *BoltBackend) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dataBucket).Get([]byte(key))
		if v != nil {
			val = append([]byte(nil), v...) // copy out of the mmap'd page
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return val, nil
}

// BatchUpdate implements Backend. All ops commit in one transaction, so
// a reader never observes a partial batch.
func (b *BoltBackend) BatchUpdate(_ context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(dataBucket)
		for _, op := range ops {
			if op.Value == nil {
				if err := bucket.Delete([]byte(op.Key)); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put([]byte(op.Key), op.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: batch update: %w", err)
	}

	for _, op := range ops {
		select {
		case b.updates <- op.Key:
		default:
			// mutation notifications are best-effort; a full channel
			// means nobody is draining it fast enough and the update is
			// safely droppable.
		}
	}
	return nil
}

// Updates implements Backend.
func (b *BoltBackend) Updates() <-chan string { return b.updates }

// Close implements Backend.
func (b *BoltBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	return nil
}
