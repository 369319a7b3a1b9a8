package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"

	"github.com/afeldman/ai-runtime/internal/config"
	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/runtime"
	"github.com/afeldman/ai-runtime/pkg/logger"
	"github.com/afeldman/ai-runtime/pkg/metric"
)

const (
	exitOK          = 0
	exitConfig      = 1
	exitEngineLoad  = 2
	exitQueue       = 3
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	viper.AutomaticEnv()
	logger.Init()
	metric.Init()

	path := config.ResolvePath(os.Args[1:])
	cfg, err := config.Load(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("configuration error")
		return exitConfig
	}
	log.Info().
		Str("backend", cfg.Model.Backend).
		Str("device", cfg.Model.Device).
		Int("workers", cfg.Workers()).
		Int("batch", cfg.Queue.MaxBatch).
		Int("max_wait_ms", cfg.Queue.MaxWaitMs).
		Msg("configuration loaded")

	rt, err := runtime.New(cfg)
	if err != nil {
		return exitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = rt.Run(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if err != nil {
		return exitCode(err)
	}
	if interrupted {
		return exitInterrupted
	}
	return exitOK
}

func exitCode(err error) int {
	var cfgErr *apperrors.ConfigError
	var loadErr *apperrors.EngineLoadError
	var queueErr *apperrors.QueueConnectError
	switch {
	case errors.As(err, &cfgErr):
		log.Error().Err(err).Msg("configuration error")
		return exitConfig
	case errors.As(err, &loadErr):
		log.Error().Err(err).Msg("engine load failure")
		return exitEngineLoad
	case errors.As(err, &queueErr):
		log.Error().Err(err).Msg("queue connection failure")
		return exitQueue
	}
	log.Error().Err(err).Msg("runtime failure")
	return exitConfig
}
