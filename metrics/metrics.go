// Package metrics exposes Prometheus-compatible counters for the pipeline
// services and a standalone metrics HTTP server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Counters updated by the transformer and combiner services.
var (
	EventsSynced         = metrics.NewCounter("eigentrust_indexer_events_synced_total")
	TermsWritten         = metrics.NewCounter("eigentrust_terms_written_total")
	TermsCombined        = metrics.NewCounter("eigentrust_terms_combined_total")
	IndicesAssigned      = metrics.NewCounter("eigentrust_indices_assigned_total")
	VerificationFailures = metrics.NewCounter("eigentrust_verification_failures_total")
	MatrixEntriesServed  = metrics.NewCounter("eigentrust_matrix_entries_served_total")
)

// MetricsServer serves the /metrics endpoint on a dedicated listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and listen address.
// An empty addr disables the server; ListenAndServe then returns immediately.
func New(name, addr string) (*MetricsServer, error) {
	if name == "" {
		return nil, fmt.Errorf("metrics service name must not be empty")
	}
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving metrics requests until Shutdown is called.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
