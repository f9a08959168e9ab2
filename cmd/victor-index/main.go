// Command victor-index runs the Index Server: a Unix-domain endpoint
// serving INSERT/SEARCH/DELETE against a fixed-dimension vector index,
// durable via a write-ahead log and periodic snapshot checkpoints.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/victor-base/victordb/indexserver"
	"github.com/victor-base/victordb/internal/config"
	"github.com/victor-base/victordb/internal/lifecycle"
	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/server"
	"github.com/victor-base/victordb/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := obs.NewTextLogger(slog.LevelInfo)

	env, err := config.LoadEnv()
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	cfg, err := config.ParseIndexFlags(flag.NewFlagSet("victor-index", flag.ContinueOnError), os.Args[1:])
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	layout := storage.New(env.DBRoot, cfg.Name)
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = layout.DefaultSocket()
	}

	logger.LogStartup("index", cfg.Name, socketPath, layout.Root, env.ExportThreshold,
		"dims", cfg.Dims, "index_type", cfg.IndexType.String(), "method", cfg.Method.String())

	var metrics obs.MetricsCollector = obs.NoopMetricsCollector{}
	if env.MetricsAddr != "" {
		pc, err := obs.NewPrometheusCollector("index", env.MetricsAddr, logger)
		if err != nil {
			logger.Error("metrics listener failed", "error", err)
			return 1
		}
		metrics = pc
	}

	srv, err := indexserver.Open(indexserver.Options{
		Layout:          layout,
		IndexType:       cfg.IndexType,
		Method:          cfg.Method,
		Dims:            cfg.Dims,
		ExportThreshold: env.ExportThreshold,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer srv.Close()

	ln, err := storage.BindUnix(socketPath)
	if err != nil {
		logger.Error("bind failed", "error", err)
		return 1
	}
	logger.LogBind(socketPath)
	defer storage.Unlink(socketPath)

	loop, err := server.New(ln, srv, logger, metrics)
	if err != nil {
		logger.Error("multiplexer init failed", "error", err)
		return 1
	}

	err = lifecycle.Run(context.Background(), loop, loop.Run)
	if err != nil {
		logger.Error("server exited with error", "error", err)
		return lifecycle.ExitCode(err)
	}
	logger.LogShutdown("signal or terminate")
	return 0
}
