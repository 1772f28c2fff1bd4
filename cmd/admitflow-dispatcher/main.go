package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/enrollhq/admitflow/pkg/cmd"
	"github.com/enrollhq/admitflow/pkg/dispatch"
	"github.com/enrollhq/admitflow/pkg/dispatch/redisdedupe"
	"github.com/enrollhq/admitflow/pkg/log"
	"github.com/enrollhq/admitflow/pkg/notify"
)

func main() {
	command := &cli.Command{
		Name:                  "admitflow-dispatcher",
		Usage:                 "Start the admission notification dispatcher",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for dedupe records (in-memory when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "max-attempts",
				Usage:   "Delivery attempts before a notification is dropped",
				Value:   5,
				Sources: cli.EnvVars("MAX_ATTEMPTS"),
			},
			&cli.DurationFlag{
				Name:    "initial-backoff",
				Usage:   "Initial retry backoff (doubles per attempt)",
				Value:   time.Second,
				Sources: cli.EnvVars("INITIAL_BACKOFF"),
			},
			&cli.DurationFlag{
				Name:    "max-backoff",
				Usage:   "Retry backoff cap",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("MAX_BACKOFF"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("admitflow-dispatcher")
	logger.Info("Initializing notification dispatcher")

	eventBus := cmd.NewEventBus(command.String("event-bus"), "admitflow-dispatcher", logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	var dedupe dispatch.DedupeStore

	if redisURL := command.String("redis-url"); redisURL != "" {
		redisStore, err := redisdedupe.NewStoreFromURL(ctx, redisURL, redisdedupe.DefaultRetention)
		if err != nil {
			return fmt.Errorf("failed to connect redis dedupe store: %w", err)
		}

		defer func() {
			if err := redisStore.Close(); err != nil {
				logger.Error("Failed to close dedupe store", "error", err)
			}
		}()

		dedupe = redisStore
	} else {
		dedupe = dispatch.NewMemoryDedupeStore()
	}

	dispatcher := dispatch.NewDispatcher(
		notify.NewLogNotifier(logger),
		dedupe,
		logger,
		dispatch.Config{
			MaxAttempts:    int(command.Int("max-attempts")),
			InitialBackoff: command.Duration("initial-backoff"),
			MaxBackoff:     command.Duration("max-backoff"),
		},
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := dispatcher.Subscribe(ctx, eventBus); err != nil {
		return fmt.Errorf("failed to subscribe dispatcher: %w", err)
	}

	logger.Info("Dispatcher started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.Info("Received signal, shutting down gracefully", "signal", sig)
	case <-ctx.Done():
		logger.Info("Context cancelled, stopping")
	}

	return nil
}
