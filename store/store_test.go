package store

import (
	"math"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheckpointDefaultsToZero(t *testing.T) {
	s := newTestStore(t)

	count, err := s.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := newTestStore(t)

	for _, want := range []uint32{0, 1, 15, math.MaxUint32} {
		err := s.Update(func(b *pebble.Batch) error {
			return SetCheckpoint(b, want)
		})
		require.NoError(t, err)

		got, err := s.Checkpoint()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)

	err := s.View(func(r pebble.Reader) error {
		_, err := Get(r, []byte("nope"))
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateIsAtomic(t *testing.T) {
	s := newTestStore(t)

	// A failing update must leave nothing behind.
	sentinel := []byte("k1")
	err := s.Update(func(b *pebble.Batch) error {
		require.NoError(t, b.Set(sentinel, []byte("v"), nil))
		return ErrNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)

	err = s.View(func(r pebble.Reader) error {
		_, err := Get(r, sentinel)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestViewSeesCommittedBatchOnly(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(b *pebble.Batch) error {
		require.NoError(t, b.Set([]byte("a"), EncodeU32(7), nil))
		return SetCheckpoint(b, 1)
	}))

	err := s.View(func(r pebble.Reader) error {
		raw, err := Get(r, []byte("a"))
		require.NoError(t, err)
		v, err := DecodeU32(raw)
		require.NoError(t, err)
		require.Equal(t, uint32(7), v)

		count, err := CheckpointFrom(r)
		require.NoError(t, err)
		require.Equal(t, uint32(1), count)
		return nil
	})
	require.NoError(t, err)
}

func TestDecodeU32RejectsBadLength(t *testing.T) {
	_, err := DecodeU32([]byte{1, 2, 3})
	require.Error(t, err)

	_, err = DecodeU32(nil)
	require.Error(t, err)
}
