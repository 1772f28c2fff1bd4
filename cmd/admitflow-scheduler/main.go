package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/enrollhq/admitflow/pkg/appdata"
	"github.com/enrollhq/admitflow/pkg/cmd"
	"github.com/enrollhq/admitflow/pkg/engine"
	"github.com/enrollhq/admitflow/pkg/log"
	"github.com/enrollhq/admitflow/pkg/otelhelper"
	"github.com/enrollhq/admitflow/pkg/registry"
	"github.com/enrollhq/admitflow/pkg/store"
	"github.com/enrollhq/admitflow/pkg/store/redislease"
)

func main() {
	command := &cli.Command{
		Name:                  "admitflow-scheduler",
		Usage:                 "Start the admission workflow evaluation scheduler",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "scheduler-id",
				Aliases: []string{"id"},
				Usage:   "Custom scheduler ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for the state store",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for lease management (state store leases used when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "templates-dir",
				Usage:    "Directory of workflow template JSON documents",
				Required: true,
				Sources:  cli.EnvVars("TEMPLATES_DIR"),
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Evaluation pass interval",
				Value:   time.Minute,
				Sources: cli.EnvVars("EVALUATION_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron expression for evaluation passes (overrides --interval)",
				Value:   "",
				Sources: cli.EnvVars("EVALUATION_CRON"),
			},
			&cli.IntFlag{
				Name:    "worker-count",
				Usage:   "Maximum applications evaluated in parallel per pass",
				Value:   4,
				Sources: cli.EnvVars("WORKER_COUNT"),
			},
			&cli.DurationFlag{
				Name:    "lease-ttl",
				Usage:   "Per-application lease TTL",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("LEASE_TTL"),
			},
			&cli.StringFlag{
				Name:     "appdata-dir",
				Usage:    "Directory of application data snapshot JSON documents",
				Required: true,
				Sources:  cli.EnvVars("APPDATA_DIR"),
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

	schedulerID := command.String("scheduler-id")
	if schedulerID == "" {
		schedulerID = fmt.Sprintf("scheduler-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("admitflow-scheduler").With("scheduler_id", schedulerID)
	logger.Info("Initializing evaluation scheduler")

	tracer, err := otelhelper.NewTracer(ctx, "admitflow-scheduler")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	eventBus := cmd.NewEventBus(command.String("event-bus"), "admitflow-scheduler", logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	stateStore := cmd.NewStore(ctx, logger, command.String("database-url"))
	defer func() {
		if err := stateStore.Close(ctx); err != nil {
			logger.Error("Failed to close state store", "error", err)
		}
	}()

	if redisURL := command.String("redis-url"); redisURL != "" {
		leases, err := redislease.NewManagerFromURL(ctx, redisURL)
		if err != nil {
			return fmt.Errorf("failed to connect redis lease manager: %w", err)
		}

		defer func() {
			if err := leases.Close(); err != nil {
				logger.Error("Failed to close lease manager", "error", err)
			}
		}()

		stateStore = store.WithLeaseManager(stateStore, leases)
	}

	templateRegistry := registry.NewRegistry()

	entries, err := templateRegistry.LoadDir(command.String("templates-dir"))
	if err != nil {
		return err
	}

	logger.Info("Templates loaded", "count", len(entries))

	leaseTTL := command.Duration("lease-ttl")

	executor := engine.NewExecutor(stateStore, templateRegistry, eventBus, logger, leaseTTL).
		WithTracer(tracer)

	scheduler := engine.NewScheduler(
		schedulerID,
		stateStore,
		templateRegistry,
		executor,
		appdata.NewFileProvider(command.String("appdata-dir")),
		logger,
		engine.SchedulerConfig{
			Interval:    command.Duration("interval"),
			CronExpr:    command.String("cron"),
			WorkerCount: int(command.Int("worker-count")),
			LeaseTTL:    leaseTTL,
		},
	)

	service := NewService(scheduler, logger)

	return service.Run(ctx)
}
