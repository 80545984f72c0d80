package combiner

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/testutil"
)

var (
	addrA = common.HexToAddress("0x90f8bf6a479f320ead074411a4b0e7944ea8c9c2")
	addrB = common.HexToAddress("0xffcf8fdee72ac11b5c542428b35eef5769c409f0")
	addrC = common.HexToAddress("0x22d491bde2303f2f43325b2108d26f1eaba1e32b")
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(testutil.NewMemStore(t), log)
}

func edge(from, to common.Address, weight uint32) protocol.TermObject {
	return protocol.TermObject{
		From:     from.Hex(),
		To:       to.Hex(),
		Weight:   weight,
		Domain:   1,
		Positive: true,
	}
}

// collect drains a matrix stream into a map keyed by (x, y).
func collect(t *testing.T, stream func(context.Context, protocol.MatrixBatch, func(*protocol.MatrixEntry) error) error, batch protocol.MatrixBatch) map[[2]uint32]uint32 {
	t.Helper()
	out := make(map[[2]uint32]uint32)
	err := stream(context.Background(), batch, func(e *protocol.MatrixEntry) error {
		out[[2]uint32{e.X, e.Y}] = e.Value
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestIndexAssignmentEncounterOrder(t *testing.T) {
	svc := newTestService(t)

	err := svc.SyncTransformer(context.Background(), []protocol.TermObject{
		edge(addrA, addrB, 50),
		edge(addrC, addrA, 25),
	})
	require.NoError(t, err)

	idx, err := svc.IndexOf(addrA)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx)

	idx, err = svc.IndexOf(addrB)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx)

	idx, err = svc.IndexOf(addrC)
	require.NoError(t, err)
	require.Equal(t, uint32(2), idx)

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)
}

func TestIndexAssignmentIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{edge(addrA, addrB, 50)}))
	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{edge(addrA, addrB, 50)}))

	idx, err := svc.IndexOf(addrA)
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx)

	idx, err = svc.IndexOf(addrB)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx)

	// Known addresses do not advance the next-free-index checkpoint.
	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)
}

func TestIndexOfUnknownAddress(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.IndexOf(addrA)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAggregationAccumulates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{
		edge(addrA, addrB, 50),
		edge(addrA, addrB, 50),
	}))
	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{
		edge(addrA, addrB, 50),
	}))

	matrix := collect(t, svc.SparseMatrix, protocol.MatrixBatch{})
	require.Equal(t, uint32(150), matrix[[2]uint32{0, 1}])
}

func TestAggregationOrderIndependent(t *testing.T) {
	edges := []protocol.TermObject{
		edge(addrA, addrB, 50),
		edge(addrB, addrA, 25),
		edge(addrA, addrB, 100),
		edge(addrC, addrB, 10),
		edge(addrA, addrC, 50),
	}
	reversed := make([]protocol.TermObject, len(edges))
	for i, e := range edges {
		reversed[len(edges)-1-i] = e
	}

	totals := func(svc *Service, objs []protocol.TermObject) map[[2]common.Address]uint32 {
		require.NoError(t, svc.SyncTransformer(context.Background(), objs))

		byIndex := collect(t, svc.SparseMatrix, protocol.MatrixBatch{})
		addrByIndex := make(map[uint32]common.Address)
		for _, addr := range []common.Address{addrA, addrB, addrC} {
			idx, err := svc.IndexOf(addr)
			require.NoError(t, err)
			addrByIndex[idx] = addr
		}

		out := make(map[[2]common.Address]uint32)
		for key, value := range byIndex {
			out[[2]common.Address{addrByIndex[key[0]], addrByIndex[key[1]]}] = value
		}
		return out
	}

	forward := totals(newTestService(t), edges)
	backward := totals(newTestService(t), reversed)
	require.Equal(t, forward, backward)
	require.Equal(t, uint32(150), forward[[2]common.Address{addrA, addrB}])
}

func TestUpdatesHoldCumulativeValues(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{edge(addrA, addrB, 50)}))
	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{edge(addrA, addrB, 100)}))

	// The updates table mirrors the latest cumulative value, not the last
	// contribution.
	updates := collect(t, svc.Updates, protocol.MatrixBatch{})
	require.Equal(t, uint32(150), updates[[2]uint32{0, 1}])

	matrix := collect(t, svc.SparseMatrix, protocol.MatrixBatch{})
	require.Equal(t, matrix, updates)
}

func TestSparseMatrixOffsetAndLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SyncTransformer(ctx, []protocol.TermObject{
		edge(addrA, addrB, 50),
		edge(addrB, addrC, 25),
		edge(addrC, addrA, 10),
	}))

	all := collect(t, svc.SparseMatrix, protocol.MatrixBatch{})
	require.Len(t, all, 3)

	limited := collect(t, svc.SparseMatrix, protocol.MatrixBatch{Limit: 2})
	require.Len(t, limited, 2)

	skipped := collect(t, svc.SparseMatrix, protocol.MatrixBatch{Offset: 2})
	require.Len(t, skipped, 1)

	window := collect(t, svc.SparseMatrix, protocol.MatrixBatch{Offset: 1, Limit: 1})
	require.Len(t, window, 1)
}

func TestBadTermFailsWholeBatch(t *testing.T) {
	svc := newTestService(t)

	err := svc.SyncTransformer(context.Background(), []protocol.TermObject{
		edge(addrA, addrB, 50),
		{From: "not-an-address", To: addrB.Hex(), Weight: 10},
	})
	require.ErrorIs(t, err, ErrBadTerm)

	// Nothing committed: no indices, checkpoint still zero.
	_, err = svc.IndexOf(addrA)
	require.ErrorIs(t, err, store.ErrNotFound)

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)
}
