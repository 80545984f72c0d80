// Command transformer runs the attestation transformer service.
//
// The transformer pulls attestation events from an indexer, verifies their
// signatures, derives trust terms, and persists them in an embedded store
// keyed by event id. Downstream, the linear combiner requests contiguous id
// ranges through the term-stream endpoint.
//
// # Configuration File
//
// Create a YAML file with service settings:
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
// Flags override file values. A sync_interval of zero disables the polling
// loop; ingestion then only happens on explicit POST /sync-indexer calls.
//
// # Usage
//
//	go run ./cmd/transformer --config=transformer.yaml
//	go run ./cmd/transformer --indexer=http://localhost:7080 --combiner=http://localhost:8081
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/omahs/rs-eigentrust/api/httpserver"
	"github.com/omahs/rs-eigentrust/cmd/common"
	"github.com/omahs/rs-eigentrust/combiner"
	"github.com/omahs/rs-eigentrust/indexer"
	"github.com/omahs/rs-eigentrust/store"
	"github.com/omahs/rs-eigentrust/transformer"
)

type config struct {
	ListenAddr           string        `yaml:"listen_addr"`
	MetricsAddr          string        `yaml:"metrics_addr"`
	Pprof                bool          `yaml:"pprof"`
	LogJSON              bool          `yaml:"log_json"`
	LogDebug             bool          `yaml:"log_debug"`
	DBPath               string        `yaml:"db_path"`
	IndexerURL           string        `yaml:"indexer_url"`
	CombinerURL          string        `yaml:"combiner_url"`
	SourceAddress        string        `yaml:"source_address"`
	SchemaIDs            []uint32      `yaml:"schema_ids"`
	PageSize             uint32        `yaml:"page_size"`
	ResumeFromCheckpoint *bool         `yaml:"resume_from_checkpoint"`
	SyncInterval         time.Duration `yaml:"sync_interval"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")

	cfg := config{
		ListenAddr:   ":8080",
		DBPath:       "transformer.db",
		SyncInterval: 10 * time.Second,
	}

	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Metrics listen address (empty disables)")
	flag.BoolVar(&cfg.Pprof, "pprof", cfg.Pprof, "Enable the pprof debugging API")
	flag.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Log in JSON format")
	flag.BoolVar(&cfg.LogDebug, "log-debug", cfg.LogDebug, "Log debug messages")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the term store database")
	flag.StringVar(&cfg.IndexerURL, "indexer", cfg.IndexerURL, "Indexer base URL")
	flag.StringVar(&cfg.CombinerURL, "combiner", cfg.CombinerURL, "Linear combiner base URL")
	flag.DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "Indexer polling interval (0 disables)")

	// Flags are parsed twice around the file load so that file values
	// become the defaults and explicit flags keep the last word.
	flag.Parse()
	if err := common.LoadYAML(*configPath, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	flag.Parse()

	log := common.NewLogger(cfg.LogJSON, cfg.LogDebug, "transformer")

	if cfg.IndexerURL == "" || cfg.CombinerURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --indexer and --combiner are required")
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open term store", "err", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	svcCfg := transformer.DefaultConfig()
	if cfg.SourceAddress != "" {
		svcCfg.SourceAddress = cfg.SourceAddress
	}
	if len(cfg.SchemaIDs) > 0 {
		svcCfg.SchemaIDs = cfg.SchemaIDs
	}
	if cfg.PageSize > 0 {
		svcCfg.PageSize = cfg.PageSize
	}
	if cfg.ResumeFromCheckpoint != nil {
		svcCfg.ResumeFromCheckpoint = *cfg.ResumeFromCheckpoint
	}

	svc := transformer.NewService(st,
		indexer.NewClient(cfg.IndexerURL),
		combiner.NewClient(cfg.CombinerURL),
		svcCfg, log)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.Pprof,
		Log:                      log,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, transformer.NewHandler(svc, log))
	if err != nil {
		log.Error("Failed to create HTTP server", "err", err)
		os.Exit(1)
	}

	common.RunUntilSignalled(srv, func(ctx context.Context) {
		if cfg.SyncInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := svc.SyncIndexer(ctx); err != nil && ctx.Err() == nil {
					log.Error("Periodic indexer sync failed", "err", err)
				}
			}
		}
	})
}
