package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/enrollhq/admitflow/pkg/eventbus"
	"github.com/enrollhq/admitflow/pkg/events"
	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/otelhelper"
	"github.com/enrollhq/admitflow/pkg/registry"
	"github.com/enrollhq/admitflow/pkg/store"
)

// Executor applies one validated transition to one application. It is the
// only writer of application workflow state, and it writes strictly under a
// held lease.
type Executor struct {
	store     store.Store
	registry  *registry.Registry
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	leaseTTL  time.Duration
}

// NewExecutor creates an executor. publisher may be nil when no notification
// delivery is wired (transitions are still recorded).
func NewExecutor(st store.Store, reg *registry.Registry, publisher eventbus.EventPublisher, logger *slog.Logger, leaseTTL time.Duration) *Executor {
	return &Executor{
		store:     st,
		registry:  reg,
		publisher: publisher,
		tracer:    noop.NewTracerProvider().Tracer("admitflow"),
		logger:    logger.With("module", "transition_executor"),
		leaseTTL:  leaseTTL,
	}
}

// WithTracer replaces the executor's tracer.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Apply records the transition for the application. The caller must hold the
// application's lease under holderToken; holding is re-verified here (which
// also extends the lease for the duration of the write).
//
// A transition, once durably recorded, is never rolled back: notification
// submission failures are logged and absorbed.
func (e *Executor) Apply(ctx context.Context, applicationID, holderToken string, transition *models.Transition, triggeredBy string) (*models.ApplicationWorkflowState, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "transition.apply",
		attribute.String(otelhelper.ApplicationIDKey, applicationID),
		attribute.String(otelhelper.TransitionNameKey, transition.Name),
		attribute.String(otelhelper.TriggeredByKey, triggeredBy),
	)
	defer span.End()

	if _, err := e.store.RenewLease(ctx, applicationID, holderToken, e.leaseTTL); err != nil {
		return nil, fmt.Errorf("lease verification failed: %w", err)
	}

	state, err := e.store.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read application state: %w", err)
	}

	if state.CurrentStageID != transition.SourceStageID {
		return nil, store.NewStateError("Apply", applicationID, store.ErrStaleTransition)
	}

	newState, err := e.store.AppendTransition(ctx, applicationID,
		transition.SourceStageID, transition.TargetStageID, transition.Name, triggeredBy)
	if err != nil {
		return nil, fmt.Errorf("failed to record transition: %w", err)
	}

	e.logger.InfoContext(ctx, "Transition applied",
		"application_id", applicationID,
		"transition", transition.Name,
		"from_stage", transition.SourceStageID,
		"to_stage", transition.TargetStageID,
		"triggered_by", triggeredBy)

	e.submitNotifications(ctx, newState, transition)

	return newState, nil
}

// Enroll creates workflow state for an application entering the template's
// start stage, and fires the start stage's entry notifications. The state is
// append-only from here on.
func (e *Executor) Enroll(ctx context.Context, applicationID string, templateID string, templateVersion int) (*models.ApplicationWorkflowState, error) {
	entry := e.registry.Get(templateID, templateVersion)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s version %d", ErrTemplateNotRegistered, templateID, templateVersion)
	}

	now := time.Now().UTC()

	entryID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate history entry ID: %w", err)
	}

	startStageID := entry.Template.StartStageID

	state := &models.ApplicationWorkflowState{
		ApplicationID:   applicationID,
		TemplateID:      templateID,
		TemplateVersion: templateVersion,
		CurrentStageID:  startStageID,
		EnteredAt:       now,
		History: []models.HistoryEntry{{
			ID:             entryID.String(),
			StageID:        startStageID,
			EnteredAt:      now,
			TransitionName: "enrolled",
			TriggeredBy:    models.TriggeredByAutomatic,
		}},
	}

	if err := e.store.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create application state: %w", err)
	}

	e.logger.InfoContext(ctx, "Application enrolled",
		"application_id", applicationID,
		"template_id", templateID,
		"template_version", templateVersion,
		"start_stage", startStageID)

	e.submitNotifications(ctx, state, &models.Transition{
		Name:          "enrolled",
		TargetStageID: startStageID,
	})

	return state, nil
}

// submitNotifications publishes one notification request per stage-entry
// trigger on the target stage, plus the stage-entered event itself. Publish
// failures never surface to the caller.
func (e *Executor) submitNotifications(ctx context.Context, state *models.ApplicationWorkflowState, transition *models.Transition) {
	if e.publisher == nil {
		return
	}

	entry := e.registry.Get(state.TemplateID, state.TemplateVersion)
	if entry == nil {
		e.logger.WarnContext(ctx, "Template version not registered, skipping notifications",
			"template_id", state.TemplateID,
			"template_version", state.TemplateVersion)

		return
	}

	now := time.Now().UTC()

	stageEntered := events.StageEntered{
		BaseEvent: events.BaseEvent{
			Type:          events.StageEnteredEvent,
			Timestamp:     now,
			ApplicationID: state.ApplicationID,
		},
		TemplateID:      state.TemplateID,
		TemplateVersion: state.TemplateVersion,
		StageID:         state.CurrentStageID,
		TransitionName:  transition.Name,
		TriggeredBy:     state.CurrentEntry().TriggeredBy,
		EnteredAt:       state.EnteredAt,
	}

	if err := e.publisher.Publish(ctx, state.ApplicationID, stageEntered); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish stage entered event",
			"application_id", state.ApplicationID,
			"stage_id", state.CurrentStageID,
			"error", err)
	}

	stage := entry.Graph.Stage(state.CurrentStageID)
	if stage == nil {
		return
	}

	for _, trigger := range stage.StageEntryTriggers() {
		request := events.NotificationRequested{
			BaseEvent: events.BaseEvent{
				Type:          events.NotificationRequestedEvent,
				Timestamp:     now,
				ApplicationID: state.ApplicationID,
			},
			TemplateKey: trigger.TemplateKey,
			Channels:    trigger.Channels,
			DedupeKey:   DedupeKey(state.ApplicationID, state.CurrentStageID, state.EnteredAt),
		}

		if err := e.publisher.Publish(ctx, state.ApplicationID, request); err != nil {
			e.logger.ErrorContext(ctx, "Failed to submit notification dispatch",
				"application_id", state.ApplicationID,
				"template_key", trigger.TemplateKey,
				"error", err)
		}
	}
}

// DedupeKey identifies one stage-entry instance: re-entering the same stage
// later produces a new key, re-dispatching the same entry does not.
func DedupeKey(applicationID, stageID string, enteredAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", applicationID, stageID, enteredAt.UnixNano())
}
