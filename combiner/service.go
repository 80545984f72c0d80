// Package combiner implements the linear combiner: it assigns dense matrix
// indices to addresses on first sight, accumulates term weights into a
// persistent sparse aggregate matrix, and serves matrix triplets to the
// downstream core computer.
package combiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/omahs/rs-eigentrust/metrics"
	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/term"
)

// ErrBadTerm reports a term object whose addresses cannot be parsed.
var ErrBadTerm = errors.New("invalid term object")

// Store key prefixes; see the store package doc for the full layout.
const (
	prefixIndex   = 0x01
	prefixMatrix  = 0x02
	prefixUpdates = 0x03
)

// Service is the linear combiner. The checkpoint of its store is the next
// free matrix index.
type Service struct {
	store *store.Store
	log   *slog.Logger

	// mu serializes sync calls: index resolution reads a snapshot before
	// the batch commits, so two concurrent syncs could otherwise hand out
	// the same index twice.
	mu sync.Mutex
}

// NewService creates a combiner over an opened store.
func NewService(st *store.Store, log *slog.Logger) *Service {
	return &Service{store: st, log: log}
}

func indexKey(addr common.Address) []byte {
	return append([]byte{prefixIndex}, addr.Bytes()...)
}

// pairKey builds the composite key for the directed pair (x, y) under the
// given table prefix.
func pairKey(prefix byte, x, y uint32) []byte {
	key := make([]byte, 0, 9)
	key = append(key, prefix)
	key = append(key, store.EncodeU32(x)...)
	key = append(key, store.EncodeU32(y)...)
	return key
}

type pair struct{ x, y uint32 }

// SyncTransformer applies one fully drained batch of terms: indices are
// resolved or assigned in arrival order, weights accumulate into the
// aggregate matrix and the updates table, and the advanced next-free-index
// checkpoint commits atomically with all of it.
func (s *Service) SyncTransformer(ctx context.Context, objs []protocol.TermObject) error {
	// Whole-batch semantics: reject every term before touching state if
	// any single one is malformed.
	terms := make([]term.Term, len(objs))
	for i, obj := range objs {
		t, err := obj.Term()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadTerm, err)
		}
		terms[i] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		next     uint32
		newelems = make(map[common.Address]uint32)
		resolved = make(map[common.Address]uint32)
		totals   = make(map[pair]uint32)
	)

	err := s.store.View(func(r pebble.Reader) error {
		var err error
		next, err = store.CheckpointFrom(r)
		if err != nil {
			return err
		}

		for _, t := range terms {
			x, err := resolveIndex(r, resolved, newelems, &next, t.From)
			if err != nil {
				return err
			}
			y, err := resolveIndex(r, resolved, newelems, &next, t.To)
			if err != nil {
				return err
			}

			p := pair{x, y}
			total, seen := totals[p]
			if !seen {
				total, err = readWeight(r, pairKey(prefixMatrix, x, y))
				if err != nil {
					return err
				}
			}
			totals[p] = total + t.Weight
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.store.Update(func(b *pebble.Batch) error {
		for addr, idx := range newelems {
			if err := b.Set(indexKey(addr), store.EncodeU32(idx), nil); err != nil {
				return err
			}
		}
		for p, total := range totals {
			if err := b.Set(pairKey(prefixMatrix, p.x, p.y), store.EncodeU32(total), nil); err != nil {
				return err
			}
			// The updates table mirrors the latest cumulative value so the
			// core computer can pull only pairs touched since its last read.
			if err := b.Set(pairKey(prefixUpdates, p.x, p.y), store.EncodeU32(total), nil); err != nil {
				return err
			}
		}
		return store.SetCheckpoint(b, next)
	})
	if err != nil {
		return err
	}

	metrics.TermsCombined.Add(len(terms))
	metrics.IndicesAssigned.Add(len(newelems))
	s.log.Info("Combined term batch",
		"terms", len(terms), "newIndices", len(newelems), "nextIndex", next)
	return nil
}

// resolveIndex returns the index for addr, assigning the next free one on
// first sight. Assignment order follows encounter order and indices are
// never reassigned.
func resolveIndex(r pebble.Reader, resolved, newelems map[common.Address]uint32, next *uint32, addr common.Address) (uint32, error) {
	if idx, ok := resolved[addr]; ok {
		return idx, nil
	}
	if idx, ok := newelems[addr]; ok {
		return idx, nil
	}

	raw, err := store.Get(r, indexKey(addr))
	if err == nil {
		idx, err := store.DecodeU32(raw)
		if err != nil {
			return 0, err
		}
		resolved[addr] = idx
		return idx, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	idx := *next
	newelems[addr] = idx
	*next++
	return idx, nil
}

// readWeight reads an accumulated weight, treating a missing pair as zero.
func readWeight(r pebble.Reader, key []byte) (uint32, error) {
	raw, err := store.Get(r, key)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return store.DecodeU32(raw)
}

// IndexOf looks up the assigned index for addr without assigning one.
func (s *Service) IndexOf(addr common.Address) (uint32, error) {
	var idx uint32
	err := s.store.View(func(r pebble.Reader) error {
		raw, err := store.Get(r, indexKey(addr))
		if err != nil {
			return err
		}
		idx, err = store.DecodeU32(raw)
		return err
	})
	return idx, err
}

// SparseMatrix streams the aggregate matrix as triplets through emit, scoped
// by batch: Offset entries are skipped in key order and at most Limit are
// emitted (zero Limit means all). The stream reflects a snapshot no older
// than the latest committed sync.
func (s *Service) SparseMatrix(ctx context.Context, batch protocol.MatrixBatch, emit func(*protocol.MatrixEntry) error) error {
	return s.streamTable(ctx, prefixMatrix, batch, emit)
}

// Updates streams the updates table the same way SparseMatrix streams the
// aggregate. Clearing consumed entries is the downstream consumer's call,
// not the combiner's.
func (s *Service) Updates(ctx context.Context, batch protocol.MatrixBatch, emit func(*protocol.MatrixEntry) error) error {
	return s.streamTable(ctx, prefixUpdates, batch, emit)
}

func (s *Service) streamTable(ctx context.Context, prefix byte, batch protocol.MatrixBatch, emit func(*protocol.MatrixEntry) error) error {
	return s.store.View(func(r pebble.Reader) error {
		iter, err := r.NewIter(&pebble.IterOptions{
			LowerBound: []byte{prefix},
			UpperBound: []byte{prefix + 1},
		})
		if err != nil {
			return fmt.Errorf("opening matrix iterator: %w", err)
		}
		defer iter.Close()

		var skipped, emitted uint32
		for valid := iter.First(); valid; valid = iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if skipped < batch.Offset {
				skipped++
				continue
			}
			if batch.Limit > 0 && emitted >= batch.Limit {
				break
			}

			key := iter.Key()
			if len(key) != 9 {
				return fmt.Errorf("malformed composite key %x", key)
			}
			x, err := store.DecodeU32(key[1:5])
			if err != nil {
				return err
			}
			y, err := store.DecodeU32(key[5:9])
			if err != nil {
				return err
			}
			value, err := store.DecodeU32(iter.Value())
			if err != nil {
				return err
			}

			if err := emit(&protocol.MatrixEntry{X: x, Y: y, Value: value}); err != nil {
				return err
			}
			emitted++
			metrics.MatrixEntriesServed.Inc()
		}
		return iter.Error()
	})
}

// Checkpoint returns the next free matrix index.
func (s *Service) Checkpoint() (uint32, error) {
	return s.store.Checkpoint()
}
