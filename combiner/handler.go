package combiner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omahs/rs-eigentrust/protocol"
)

// Handler exposes the combiner service over HTTP.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes registers the combiner's RPC surface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sync-transformer", h.handleSyncTransformer)
	r.Post("/sync-core-computer", h.handleSyncCoreComputer)
	r.Post("/updates", h.handleUpdates)
}

// handleSyncTransformer ingests a client-streamed term batch. The stream is
// fully drained before any processing so the commit stays all-or-nothing.
func (h *Handler) handleSyncTransformer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	terms, err := protocol.DrainStream[protocol.TermObject](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed term stream: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.svc.SyncTransformer(r.Context(), terms); err != nil {
		if errors.Is(err, ErrBadTerm) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("Transformer sync failed", "err", err)
		http.Error(w, "failed to combine term batch", http.StatusInternalServerError)
		return
	}

	writeAck(w)
}

func (h *Handler) handleSyncCoreComputer(w http.ResponseWriter, r *http.Request) {
	h.streamTable(w, r, h.svc.SparseMatrix)
}

func (h *Handler) handleUpdates(w http.ResponseWriter, r *http.Request) {
	h.streamTable(w, r, h.svc.Updates)
}

func (h *Handler) streamTable(w http.ResponseWriter, r *http.Request,
	stream func(ctx context.Context, batch protocol.MatrixBatch, emit func(*protocol.MatrixEntry) error) error,
) {
	defer r.Body.Close()

	var batch protocol.MatrixBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil && err != io.EOF {
		http.Error(w, fmt.Sprintf("malformed batch request: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := protocol.NewStreamEncoder[protocol.MatrixEntry](w)
	if err := stream(r.Context(), batch, enc.Send); err != nil {
		// Headers are already out; all we can do is cut the stream short.
		h.log.Error("Matrix stream aborted", "err", err)
	}
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(protocol.Ack{Status: "ok"})
}
