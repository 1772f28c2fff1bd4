package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/enrollhq/admitflow/pkg/appdata"
	"github.com/enrollhq/admitflow/pkg/conditions"
	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/registry"
	"github.com/enrollhq/admitflow/pkg/store"
)

// SchedulerConfig tunes the automatic evaluation scheduler. Interval is the
// fixed tick period; setting CronExpr instead schedules ticks on a cron
// expression. WorkerCount bounds the per-tick parallelism across
// applications.
type SchedulerConfig struct {
	Interval    time.Duration
	CronExpr    string
	WorkerCount int
	LeaseTTL    time.Duration
}

// Scheduler periodically scans applications sitting in stages with outgoing
// automatic transitions and applies at most one eligible transition per
// application per tick. Chained automatic progress happens across ticks,
// which bounds per-tick work and makes cyclic graphs self-limiting.
type Scheduler struct {
	id       string
	store    store.Store
	registry *registry.Registry
	executor *Executor
	data     appdata.Provider
	logger   *slog.Logger
	config   SchedulerConfig

	ticker  *time.Ticker
	cron    *cron.Cron
	done    chan bool
	started bool
	mu      sync.Mutex
}

func NewScheduler(id string, st store.Store, reg *registry.Registry, executor *Executor, data appdata.Provider, logger *slog.Logger, config SchedulerConfig) *Scheduler {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}

	if config.Interval <= 0 {
		config.Interval = time.Minute
	}

	if config.LeaseTTL <= 0 {
		config.LeaseTTL = 30 * time.Second
	}

	return &Scheduler{
		id:       id,
		store:    st,
		registry: reg,
		executor: executor,
		data:     data,
		logger:   logger.With("module", "evaluation_scheduler", "scheduler_id", id),
		config:   config,
	}
}

// Start begins periodic evaluation. It returns immediately; evaluation runs
// in the background until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.done = make(chan bool)
	s.started = true

	if s.config.CronExpr != "" {
		s.cron = cron.New()

		if _, err := s.cron.AddFunc(s.config.CronExpr, func() { s.Tick(ctx) }); err != nil {
			s.started = false

			return err
		}

		s.cron.Start()
		s.logger.Info("Scheduler started", "cron", s.config.CronExpr)

		return nil
	}

	s.ticker = time.NewTicker(s.config.Interval)

	go s.poll(ctx)

	s.logger.Info("Scheduler started", "interval", s.config.Interval)

	return nil
}

// Stop gracefully shuts the scheduler down.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	if s.cron != nil {
		s.cron.Stop()
	}

	select {
	case s.done <- true:
	default:
	}

	s.started = false
	s.logger.Info("Scheduler stopped")

	return nil
}

func (s *Scheduler) poll(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass over every registered template version.
// Candidates are processed independently and in parallel up to the worker
// bound; an application whose lease is held is skipped this tick.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, entry := range s.registry.Entries() {
		stageIDs := entry.Graph.AutomaticSourceStages()
		if len(stageIDs) == 0 {
			continue
		}

		template := entry.Template

		candidates, err := s.store.CandidateApplications(ctx, template.ID, template.Version, stageIDs)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to query candidate applications",
				"template_id", template.ID,
				"template_version", template.Version,
				"error", err)

			continue
		}

		if len(candidates) == 0 {
			continue
		}

		s.logger.DebugContext(ctx, "Evaluating candidates",
			"template_id", template.ID,
			"count", len(candidates))

		var wg sync.WaitGroup

		semaphore := make(chan struct{}, s.config.WorkerCount)

		for _, applicationID := range candidates {
			wg.Add(1)

			semaphore <- struct{}{}

			go func(applicationID string) {
				defer wg.Done()
				defer func() { <-semaphore }()

				s.evaluateApplication(ctx, entry, applicationID)
			}(applicationID)
		}

		wg.Wait()
	}
}

// evaluateApplication applies at most one automatic transition to one
// application, under a fresh lease. Declaration order is the tie-break when
// several conditions are simultaneously true.
func (s *Scheduler) evaluateApplication(ctx context.Context, entry *registry.Entry, applicationID string) {
	holderToken := uuid.New().String()

	if _, err := s.store.AcquireLease(ctx, applicationID, holderToken, s.config.LeaseTTL); err != nil {
		if store.IsLeaseHeld(err) {
			s.logger.DebugContext(ctx, "Lease held, skipping this tick",
				"application_id", applicationID)

			return
		}

		s.logger.ErrorContext(ctx, "Failed to acquire lease",
			"application_id", applicationID,
			"error", err)

		return
	}

	defer func() {
		if err := s.store.ReleaseLease(ctx, applicationID, holderToken); err != nil {
			s.logger.WarnContext(ctx, "Failed to release lease",
				"application_id", applicationID,
				"error", err)
		}
	}()

	state, err := s.store.Get(ctx, applicationID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read application state",
			"application_id", applicationID,
			"error", err)

		return
	}

	automatic := entry.Graph.AutomaticFrom(state.CurrentStageID)
	if len(automatic) == 0 {
		return
	}

	snapshot, err := s.data.Snapshot(ctx, applicationID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch application data",
			"application_id", applicationID,
			"error", err)

		return
	}

	for _, transition := range automatic {
		if !conditions.Evaluate(transition.Condition, snapshot) {
			continue
		}

		if _, err := s.executor.Apply(ctx, applicationID, holderToken, transition, models.TriggeredByAutomatic); err != nil {
			s.logger.ErrorContext(ctx, "Failed to apply automatic transition",
				"application_id", applicationID,
				"transition", transition.Name,
				"error", err)
		}

		// One hop per application per tick.
		return
	}
}
