// Package store wraps an embedded pebble key-value store behind the access
// discipline the pipeline services require: one handle per process, writes
// applied as atomic synced batches under an exclusive lock, reads served
// from snapshots so a reader never observes a partially committed batch.
//
// Key layout (per service, one store):
//
//	"checkpoint"          -> [4 countBE]                 both services
//	[4 idBE]              -> [49 term]                   transformer
//	[0x01][20 address]    -> [4 indexBE]                 combiner index table
//	[0x02][4 xBE][4 yBE]  -> [4 weightBE]                combiner aggregate matrix
//	[0x03][4 xBE][4 yBE]  -> [4 weightBE]                combiner updates table
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// ErrNotFound reports a record expected to be present but missing.
var ErrNotFound = errors.New("record not found")

var checkpointKey = []byte("checkpoint")

// Store is a single process-wide handle to one service's KV namespace.
type Store struct {
	db *pebble.DB

	// mu serializes write batches. The underlying engine is single-writer;
	// each sync operation must commit as one atomic unit relative to other
	// writers on the same store.
	mu sync.Mutex
}

// Open opens (or creates) the store at path and initializes the checkpoint
// to zero if absent.
func Open(path string) (*Store, error) {
	return open(path, &pebble.Options{})
}

// OpenMem opens a store backed by an in-memory filesystem, used in tests.
func OpenMem() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(path string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Store{db: db}
	if _, err := s.Checkpoint(); errors.Is(err, ErrNotFound) {
		if err := db.Set(checkpointKey, EncodeU32(0), pebble.Sync); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing checkpoint: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the store handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Update runs fn against a fresh batch and commits it synced. The batch is
// all-or-nothing; if fn fails, nothing is applied.
func (s *Store) Update(fn func(b *pebble.Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	if err := fn(b); err != nil {
		return err
	}
	if err := s.db.Apply(b, pebble.Sync); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// View runs fn against a consistent snapshot of the store.
func (s *Store) View(fn func(r pebble.Reader) error) error {
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return fn(snap)
}

// Checkpoint reads the persisted progress counter.
func (s *Store) Checkpoint() (uint32, error) {
	var count uint32
	err := s.View(func(r pebble.Reader) error {
		var err error
		count, err = CheckpointFrom(r)
		return err
	})
	return count, err
}

// CheckpointFrom reads the progress counter through an existing reader.
func CheckpointFrom(r pebble.Reader) (uint32, error) {
	raw, err := Get(r, checkpointKey)
	if err != nil {
		return 0, err
	}
	return DecodeU32(raw)
}

// SetCheckpoint stages a new progress counter value into a batch so that it
// commits atomically with the work it accounts for.
func SetCheckpoint(b *pebble.Batch, count uint32) error {
	return b.Set(checkpointKey, EncodeU32(count), nil)
}

// Get reads key through r, returning a copy of the value. Missing keys
// report ErrNotFound.
func Get(r pebble.Reader, key []byte) ([]byte, error) {
	raw, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: key %x", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %x: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// EncodeU32 encodes v as 4 big-endian bytes, the store's counter encoding.
func EncodeU32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// DecodeU32 decodes a 4-byte big-endian counter value.
func DecodeU32(raw []byte) (uint32, error) {
	if len(raw) != 4 {
		return 0, fmt.Errorf("malformed counter value: %d bytes, want 4", len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}
