package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/omahs/rs-eigentrust/indexer"
	"github.com/omahs/rs-eigentrust/protocol"
)

// NewIndexerServer stands up a stub event indexer that serves the given log
// over the subscribe contract: events with id >= query offset, at most
// query count of them, in log order. The server closes with the test.
func NewIndexerServer(t *testing.T, events []indexer.Event) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /subscribe", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		query, err := protocol.DecodeMessage[indexer.Query](r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := protocol.NewStreamEncoder[indexer.Event](w)

		var sent uint32
		for i := range events {
			if events[i].ID < query.Offset {
				continue
			}
			if query.Count > 0 && sent >= query.Count {
				break
			}
			if err := enc.Send(&events[i]); err != nil {
				return
			}
			sent++
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
