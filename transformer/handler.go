package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/schemas"
	"github.com/omahs/rs-eigentrust/store"
)

// Handler exposes the transformer service over HTTP.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes registers the transformer's RPC surface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sync-indexer", h.handleSyncIndexer)
	r.Post("/term-stream", h.handleTermStream)
}

func (h *Handler) handleSyncIndexer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SyncIndexer(r.Context()); err != nil {
		h.log.Error("Indexer sync failed", "err", err)
		http.Error(w, err.Error(), syncStatus(err))
		return
	}
	writeAck(w)
}

func (h *Handler) handleTermStream(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	batch, err := protocol.DecodeMessage[protocol.TermBatch](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed batch request: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.svc.TermStream(r.Context(), *batch); err != nil {
		h.log.Error("Term stream failed", "err", err, "start", batch.Start, "size", batch.Size)
		http.Error(w, err.Error(), syncStatus(err))
		return
	}
	writeAck(w)
}

// syncStatus maps the error taxonomy onto HTTP statuses. Everything here is
// recoverable at the call boundary; checkpoints are untouched and the next
// call retries from the same point.
func syncStatus(err error) int {
	switch {
	case errors.Is(err, ErrBatchTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSequenceGap),
		errors.Is(err, schemas.ErrParse),
		errors.Is(err, schemas.ErrVerification),
		errors.Is(err, schemas.ErrUnsupportedSchema):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(protocol.Ack{Status: "ok"})
}
