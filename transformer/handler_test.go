package transformer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/omahs/rs-eigentrust/indexer"
	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/schemas"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/testutil"
)

// startTransformer wires a full transformer behind an HTTP test server and
// returns a client for it.
func startTransformer(t *testing.T, events []indexer.Event) (*Client, *Service) {
	t.Helper()
	comb, _ := startCombiner(t)
	svc := newService(t, testutil.NewMemStore(t), events, comb)

	r := chi.NewRouter()
	NewHandler(svc, discardLog()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL), svc
}

func TestHandlerSyncIndexer(t *testing.T) {
	key := testutil.GenerateKey(t)
	client, svc := startTransformer(t, []indexer.Event{followEvent(t, 0, key)})

	require.NoError(t, client.SyncIndexer(context.Background()))

	count, err := svc.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)
}

func TestHandlerTermStream(t *testing.T) {
	key := testutil.GenerateKey(t)
	client, _ := startTransformer(t, []indexer.Event{followEvent(t, 0, key)})
	ctx := context.Background()

	require.NoError(t, client.SyncIndexer(ctx))
	require.NoError(t, client.TermStream(ctx, protocol.TermBatch{Start: 0, Size: 1}))
}

func TestHandlerStatusMapping(t *testing.T) {
	key := testutil.GenerateKey(t)
	gapped := []indexer.Event{followEvent(t, 0, key), followEvent(t, 2, key)}
	client, _ := startTransformer(t, gapped)
	ctx := context.Background()

	err := client.SyncIndexer(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")

	err = client.TermStream(ctx, protocol.TermBatch{Start: 0, Size: MaxTermBatchSize + 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")

	err = client.TermStream(ctx, protocol.TermBatch{Start: 7, Size: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}

func TestHandlerRejectsMalformedBatch(t *testing.T) {
	client, _ := startTransformer(t, nil)

	resp, err := http.Post(client.baseURL+"/term-stream", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncStatusTaxonomy(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, syncStatus(ErrBatchTooLarge))
	require.Equal(t, http.StatusNotFound, syncStatus(store.ErrNotFound))
	require.Equal(t, http.StatusBadGateway, syncStatus(ErrSequenceGap))
	require.Equal(t, http.StatusBadGateway, syncStatus(schemas.ErrVerification))
	require.Equal(t, http.StatusBadGateway, syncStatus(schemas.ErrUnsupportedSchema))
	require.Equal(t, http.StatusInternalServerError, syncStatus(context.Canceled))
}
