// Package cmd provides CLI commands for the trust pipeline services.
//
// # Commands
//
// transformer: Pulls attestation events from an indexer, verifies their
// signatures, derives trust terms, and serves contiguous term ranges to the
// linear combiner.
//
//	go run ./cmd/transformer --indexer=http://localhost:7080 --combiner=http://localhost:8081
//	go run ./cmd/transformer --config=transformer.yaml
//
// combiner: Accumulates term streams into a persistent sparse trust matrix
// and serves it to core computers as finite triplet streams.
//
//	go run ./cmd/combiner --addr=:8081 --db=combiner.db
//	go run ./cmd/combiner --config=combiner.yaml
//
// # Configuration
//
// All commands support YAML configuration files via the --config flag.
// Command-line flags override config file values.
//
// Example config for the transformer command:
//
//	listen_addr: ":8080"
//	metrics_addr: ":9090"
//	db_path: "transformer.db"
//	indexer_url: "http://localhost:7080"
//	combiner_url: "http://localhost:8081"
//	source_address: "0x1"
//	page_size: 1000
//	resume_from_checkpoint: true
//	sync_interval: 10s
//
// Both commands expose /livez, /readyz, /drain and /undrain endpoints for
// orchestration, and an optional Prometheus metrics listener.
package cmd
