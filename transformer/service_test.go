package transformer

import (
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/omahs/rs-eigentrust/combiner"
	"github.com/omahs/rs-eigentrust/indexer"
	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/schemas"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/testutil"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startCombiner runs a combiner service behind an HTTP test server and
// returns a client for it plus the service for state assertions.
func startCombiner(t *testing.T) (*combiner.Client, *combiner.Service) {
	t.Helper()
	svc := combiner.NewService(testutil.NewMemStore(t), discardLog())

	r := chi.NewRouter()
	combiner.NewHandler(svc, discardLog()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return combiner.NewClient(srv.URL), svc
}

func followEvent(t *testing.T, id uint32, key *ecdsa.PrivateKey) indexer.Event {
	t.Helper()
	follow := testutil.NewSignedFollow(t, key, testutil.TestDid)
	return indexer.Event{
		ID:          id,
		SchemaID:    uint32(schemas.SchemaFollow),
		SchemaValue: testutil.SchemaValue(t, follow),
		Timestamp:   2397848 + uint64(id),
	}
}

func newService(t *testing.T, st *store.Store, events []indexer.Event, comb *combiner.Client) *Service {
	t.Helper()
	idxSrv := testutil.NewIndexerServer(t, events)
	return NewService(st, indexer.NewClient(idxSrv.URL), comb, DefaultConfig(), discardLog())
}

func TestSyncIndexerStoresTermsAndCheckpoint(t *testing.T) {
	key := testutil.GenerateKey(t)
	events := []indexer.Event{
		followEvent(t, 0, key),
		followEvent(t, 1, key),
		followEvent(t, 2, key),
	}

	comb, combSvc := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), events, comb)
	ctx := context.Background()

	require.NoError(t, svc.SyncIndexer(ctx))

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(3), count)

	// Forward the stored range into the combiner and check the aggregate.
	require.NoError(t, svc.TermStream(ctx, protocol.TermBatch{Start: 0, Size: 3}))

	idx, err := combSvc.IndexOf(testutil.AddressOf(key))
	require.NoError(t, err)
	require.Equal(t, uint32(0), idx)

	idx, err = combSvc.IndexOf(testutil.MustDid(t, testutil.TestDid).Key)
	require.NoError(t, err)
	require.Equal(t, uint32(1), idx)

	var value uint32
	err = combSvc.SparseMatrix(ctx, protocol.MatrixBatch{}, func(e *protocol.MatrixEntry) error {
		require.Equal(t, uint32(0), e.X)
		require.Equal(t, uint32(1), e.Y)
		value = e.Value
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, uint32(150), value)

	combCount, err := combSvc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(2), combCount)
}

func TestSyncIndexerIsIdempotentAcrossCalls(t *testing.T) {
	key := testutil.GenerateKey(t)
	events := []indexer.Event{followEvent(t, 0, key), followEvent(t, 1, key)}

	comb, _ := startCombiner(t)
	st := testutil.NewMemStore(t)
	svc := newService(t, st, events, comb)
	ctx := context.Background()

	require.NoError(t, svc.SyncIndexer(ctx))

	// A second sync resumes from the checkpoint and finds nothing new.
	require.NoError(t, svc.SyncIndexer(ctx))

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)
}

func TestSyncIndexerResumesFromCheckpoint(t *testing.T) {
	key := testutil.GenerateKey(t)
	var events []indexer.Event
	for id := uint32(0); id < 3; id++ {
		events = append(events, followEvent(t, id, key))
	}

	comb, _ := startCombiner(t)
	st := testutil.NewMemStore(t)
	require.NoError(t, newService(t, st, events, comb).SyncIndexer(context.Background()))

	// The upstream log grows; a fresh service over the same store picks up
	// only the new tail.
	events = append(events, followEvent(t, 3, key), followEvent(t, 4, key))
	svc := newService(t, st, events, comb)
	require.NoError(t, svc.SyncIndexer(context.Background()))

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(5), count)
}

func TestSyncIndexerRejectsSequenceGap(t *testing.T) {
	key := testutil.GenerateKey(t)
	events := []indexer.Event{followEvent(t, 0, key), followEvent(t, 2, key)}

	comb, _ := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), events, comb)

	err := svc.SyncIndexer(context.Background())
	require.ErrorIs(t, err, ErrSequenceGap)

	// Checkpoint untouched; the next call retries from the same point.
	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)
}

func TestSyncIndexerFailsWholeBatchOnInvalidEvent(t *testing.T) {
	key := testutil.GenerateKey(t)
	bad := followEvent(t, 1, key)
	bad.SchemaValue = `{"id":"did:pkh:eth:90f8bf6a479f320ead074411a4b0e7944ea8c9c2","is_trustworthy":true,"scope":"Auditor","sig":{"recovery_id":9,"r":"0x00","s":"0x00"}}`

	events := []indexer.Event{followEvent(t, 0, key), bad}

	comb, _ := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), events, comb)

	err := svc.SyncIndexer(context.Background())
	require.ErrorIs(t, err, schemas.ErrVerification)

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)

	// No partial state: the valid first event was not committed either.
	err = svc.TermStream(context.Background(), protocol.TermBatch{Start: 0, Size: 1})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSyncIndexerRejectsUnknownSchema(t *testing.T) {
	key := testutil.GenerateKey(t)
	ev := followEvent(t, 0, key)
	ev.SchemaID = 42

	comb, _ := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), []indexer.Event{ev}, comb)

	err := svc.SyncIndexer(context.Background())
	require.ErrorIs(t, err, schemas.ErrUnsupportedSchema)
}

func TestTermStreamRejectsOversizedBatch(t *testing.T) {
	comb, combSvc := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), nil, comb)

	err := svc.TermStream(context.Background(), protocol.TermBatch{Start: 0, Size: MaxTermBatchSize + 1})
	require.ErrorIs(t, err, ErrBatchTooLarge)

	// Rejected before touching storage or the combiner.
	count, err := combSvc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)
}

func TestTermStreamRequiresFullyPopulatedRange(t *testing.T) {
	key := testutil.GenerateKey(t)
	events := []indexer.Event{followEvent(t, 0, key), followEvent(t, 1, key)}

	comb, combSvc := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), events, comb)
	ctx := context.Background()

	require.NoError(t, svc.SyncIndexer(ctx))

	err := svc.TermStream(ctx, protocol.TermBatch{Start: 0, Size: 3})
	require.ErrorIs(t, err, store.ErrNotFound)

	// A failed range read must not feed a short list downstream.
	count, err := combSvc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)
}
