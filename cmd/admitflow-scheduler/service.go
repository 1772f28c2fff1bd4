package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/enrollhq/admitflow/pkg/engine"
)

// Service wraps the scheduler with signal handling and a blocking run loop.
type Service struct {
	scheduler *engine.Scheduler
	logger    *slog.Logger
}

func NewService(scheduler *engine.Scheduler, logger *slog.Logger) *Service {
	return &Service{
		scheduler: scheduler,
		logger:    logger.With("module", "scheduler_service"),
	}
}

// Run starts the scheduler and blocks until a termination signal arrives or
// the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		s.logger.Info("Received signal, shutting down gracefully", "signal", sig)
	case <-ctx.Done():
		s.logger.Info("Context cancelled, stopping")
	}

	return s.scheduler.Stop(context.WithoutCancel(ctx))
}
