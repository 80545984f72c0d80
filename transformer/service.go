// Package transformer implements the attestation transformer: checkpointed
// ingestion of signed attestation events from the indexer, verification and
// term derivation, and bounded-range term serving into the combiner.
package transformer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/omahs/rs-eigentrust/combiner"
	"github.com/omahs/rs-eigentrust/indexer"
	"github.com/omahs/rs-eigentrust/metrics"
	"github.com/omahs/rs-eigentrust/protocol"
	"github.com/omahs/rs-eigentrust/schemas"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/term"
)

// MaxTermBatchSize bounds a single term stream request.
const MaxTermBatchSize = 1000

// Sentinel errors surfaced by sync operations.
var (
	ErrSequenceGap   = errors.New("indexer stream out of sequence")
	ErrBatchTooLarge = errors.New("term batch size exceeds maximum")
)

// Config holds the transformer's ingestion parameters.
type Config struct {
	// SourceAddress filters the indexer's log to one attestation source.
	SourceAddress string

	// SchemaIDs filters the subscription to the attestation schemas the
	// transformer can parse. Defaults to all known schema ids.
	SchemaIDs []uint32

	// PageSize bounds one subscription window.
	PageSize uint32

	// ResumeFromCheckpoint makes SyncIndexer subscribe from the persisted
	// checkpoint instead of replaying the upstream log from offset zero.
	ResumeFromCheckpoint bool
}

// DefaultConfig returns the production ingestion parameters.
func DefaultConfig() Config {
	return Config{
		SourceAddress: "0x1",
		SchemaIDs: []uint32{
			uint32(schemas.SchemaFollow),
			uint32(schemas.SchemaAuditApprove),
			uint32(schemas.SchemaAuditDisapprove),
			uint32(schemas.SchemaEndorseCredential),
		},
		PageSize:             1000,
		ResumeFromCheckpoint: true,
	}
}

// Service is the attestation transformer. The checkpoint of its store is
// the id of the next event to ingest.
type Service struct {
	store    *store.Store
	indexer  *indexer.Client
	combiner *combiner.Client
	cfg      Config
	log      *slog.Logger

	// mu makes each sync call one atomic unit relative to other writers.
	mu sync.Mutex
}

// NewService creates a transformer over an opened store and the two
// collaborator clients.
func NewService(st *store.Store, idx *indexer.Client, comb *combiner.Client, cfg Config, log *slog.Logger) *Service {
	return &Service{store: st, indexer: idx, combiner: comb, cfg: cfg, log: log}
}

type parsedEvent struct {
	id   uint32
	term term.Term
}

// SyncIndexer pulls one subscription window from the indexer, verifies every
// event, and commits all derived terms plus the advanced checkpoint as one
// atomic batch. Any parse, verification, or sequence failure aborts the call
// with the checkpoint untouched.
func (s *Service) SyncIndexer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := uint32(0)
	if s.cfg.ResumeFromCheckpoint {
		var err error
		offset, err = s.store.Checkpoint()
		if err != nil {
			return err
		}
	}

	stream, err := s.indexer.Subscribe(ctx, indexer.Query{
		SourceAddress: s.cfg.SourceAddress,
		SchemaIDs:     s.cfg.SchemaIDs,
		Offset:        offset,
		Count:         s.cfg.PageSize,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	// Buffer everything in memory and write once at the end, so a failed
	// event leaves no partial state behind.
	count := offset
	var events []parsedEvent
	for {
		ev, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading indexer stream: %w", err)
		}

		// The indexer log is strictly sequential; a gap means the stream
		// and the checkpoint disagree and retrying is the only safe move.
		if ev.ID != count {
			return fmt.Errorf("%w: got event id %d, want %d", ErrSequenceGap, ev.ID, count)
		}

		t, err := s.parseEvent(ev)
		if err != nil {
			return err
		}
		events = append(events, parsedEvent{id: ev.ID, term: t})
		count++
	}

	if len(events) == 0 {
		s.log.Info("Indexer sync found no new events", "checkpoint", count)
		return nil
	}

	err = s.store.Update(func(b *pebble.Batch) error {
		for _, ev := range events {
			if err := b.Set(store.EncodeU32(ev.id), ev.term.Marshal(), nil); err != nil {
				return err
			}
		}
		return store.SetCheckpoint(b, count)
	})
	if err != nil {
		return err
	}

	metrics.EventsSynced.Add(len(events))
	metrics.TermsWritten.Add(len(events))
	s.log.Info("Synced indexer events", "events", len(events), "checkpoint", count)
	return nil
}

// parseEvent dispatches on the wire-level schema id and derives the term.
func (s *Service) parseEvent(ev *indexer.Event) (term.Term, error) {
	att, err := schemas.Parse(ev.SchemaID, []byte(ev.SchemaValue))
	if err != nil {
		return term.Term{}, fmt.Errorf("event %d: %w", ev.ID, err)
	}

	t, err := att.Term()
	if err != nil {
		if errors.Is(err, schemas.ErrVerification) {
			metrics.VerificationFailures.Inc()
		}
		return term.Term{}, fmt.Errorf("event %d: %w", ev.ID, err)
	}
	return t, nil
}

// TermStream reads the fully populated id range [Start, Start+Size) from
// the store and forwards it as a stream into the combiner's ingestion
// endpoint, returning its outcome.
func (s *Service) TermStream(ctx context.Context, batch protocol.TermBatch) error {
	if batch.Size > MaxTermBatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, batch.Size, MaxTermBatchSize)
	}

	objs := make([]protocol.TermObject, 0, batch.Size)
	err := s.store.View(func(r pebble.Reader) error {
		for off := uint32(0); off < batch.Size; off++ {
			id := batch.Start + off
			raw, err := store.Get(r, store.EncodeU32(id))
			if err != nil {
				return fmt.Errorf("term %d: %w", id, err)
			}
			t, err := term.Unmarshal(raw)
			if err != nil {
				return fmt.Errorf("term %d: %w", id, err)
			}
			objs = append(objs, protocol.FromTerm(t))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.combiner.SyncTransformer(ctx, objs)
}

// Checkpoint returns the id of the next event to ingest.
func (s *Service) Checkpoint() (uint32, error) {
	return s.store.Checkpoint()
}
