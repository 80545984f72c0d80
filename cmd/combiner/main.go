// Command combiner runs the linear combiner service.
//
// The combiner ingests term streams from the transformer, assigns stable
// matrix indices to addresses in encounter order, and accumulates term
// weights into a persistent sparse matrix. Core computers pull the matrix
// and the pending-updates table as finite triplet streams.
//
// # Configuration File
//
// Create a YAML file with service settings:
//
//	listen_addr: ":8081"
//	metrics_addr: ":9091"
//	db_path: "combiner.db"
//
// Flags override file values.
//
// # Usage
//
//	go run ./cmd/combiner --config=combiner.yaml
//	go run ./cmd/combiner --addr=:8081 --db=combiner.db
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/omahs/rs-eigentrust/api/httpserver"
	"github.com/omahs/rs-eigentrust/cmd/common"
	"github.com/omahs/rs-eigentrust/combiner"
	"github.com/omahs/rs-eigentrust/store"
)

type config struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	Pprof       bool   `yaml:"pprof"`
	LogJSON     bool   `yaml:"log_json"`
	LogDebug    bool   `yaml:"log_debug"`
	DBPath      string `yaml:"db_path"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")

	cfg := config{
		ListenAddr: ":8081",
		DBPath:     "combiner.db",
	}

	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Metrics listen address (empty disables)")
	flag.BoolVar(&cfg.Pprof, "pprof", cfg.Pprof, "Enable the pprof debugging API")
	flag.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "Log in JSON format")
	flag.BoolVar(&cfg.LogDebug, "log-debug", cfg.LogDebug, "Log debug messages")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the matrix store database")

	flag.Parse()
	if err := common.LoadYAML(*configPath, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	flag.Parse()

	log := common.NewLogger(cfg.LogJSON, cfg.LogDebug, "combiner")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open matrix store", "err", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer st.Close()

	svc := combiner.NewService(st, log)

	srv, err := httpserver.New(&httpserver.Config{
		ListenAddr:               cfg.ListenAddr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.Pprof,
		Log:                      log,
		DrainDuration:            30 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, combiner.NewHandler(svc, log))
	if err != nil {
		log.Error("Failed to create HTTP server", "err", err)
		os.Exit(1)
	}

	common.RunUntilSignalled(srv, nil)
}
