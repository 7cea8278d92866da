package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coldbell/clone-actions/internal/actions"
	"github.com/coldbell/clone-actions/internal/apiserver"
	"github.com/coldbell/clone-actions/internal/chain"
	"github.com/coldbell/clone-actions/internal/clone"
	"github.com/coldbell/clone-actions/internal/config"
	"github.com/coldbell/clone-actions/internal/logging"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadActionsServerConfig()
	if err != nil {
		bootstrapLogger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, closeLogger, err := logging.New("actions-server", cfg.Log)
	if err != nil {
		bootstrapLogger.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeLogger(); closeErr != nil {
			bootstrapLogger.Error("failed to close logger", "err", closeErr)
		}
	}()

	if source, sourceErr := config.CurrentConfigSource(); sourceErr == nil {
		logger.Info("configuration loaded", "phase", source.Phase, "path", source.Path, "loaded", source.Loaded)
	}

	clone.ProgramID = cfg.CloneProgramID

	rpcClient := chain.New(chain.Options{
		RPCURL:            cfg.RPCURL,
		Commitment:        cfg.Commitment,
		RequestsPerSecond: cfg.RPCRequestsPerSecond,
	})
	defer func() {
		if closeErr := rpcClient.Close(); closeErr != nil {
			logger.Warn("failed to close rpc client", "err", closeErr)
		}
	}()

	builder, err := actions.NewBuilder(rpcClient, cfg.RPCTimeout)
	if err != nil {
		logger.Error("failed to initialize transaction builder", "err", err)
		os.Exit(1)
	}

	svc, err := apiserver.New(cfg, logger, builder)
	if err != nil {
		logger.Error("failed to initialize actions-server service", "err", err)
		os.Exit(1)
	}

	logger.Info("clone program configured",
		"program_id", cfg.CloneProgramID.String(),
		"rpc_url", cfg.RPCURL,
		"commitment", string(cfg.Commitment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		logger.Error("actions-server exited with error", "err", err)
		os.Exit(1)
	}
}
