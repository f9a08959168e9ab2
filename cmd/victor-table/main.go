// Command victor-table runs the Table Server: a Unix-domain endpoint
// serving PUT/GET/DEL against a binary-safe key-value store, durable via
// a write-ahead log and periodic snapshot checkpoints.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/victor-base/victordb/internal/config"
	"github.com/victor-base/victordb/internal/lifecycle"
	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/server"
	"github.com/victor-base/victordb/storage"
	"github.com/victor-base/victordb/tableserver"
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

	cfg, err := config.ParseTableFlags(flag.NewFlagSet("victor-table", flag.ContinueOnError), os.Args[1:])
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	layout := storage.New(env.DBRoot, cfg.Name)
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = layout.DefaultSocket()
	}

	logger.LogStartup("table", cfg.Name, socketPath, layout.Root, env.ExportThreshold)

	var metrics obs.MetricsCollector = obs.NoopMetricsCollector{}
	if env.MetricsAddr != "" {
		pc, err := obs.NewPrometheusCollector("table", env.MetricsAddr, logger)
		if err != nil {
			logger.Error("metrics listener failed", "error", err)
			return 1
		}
		metrics = pc
	}

	srv, err := tableserver.Open(tableserver.Options{
		Layout:          layout,
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
