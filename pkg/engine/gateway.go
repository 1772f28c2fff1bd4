package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/enrollhq/admitflow/pkg/appdata"
	"github.com/enrollhq/admitflow/pkg/conditions"
	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/registry"
	"github.com/enrollhq/admitflow/pkg/store"
)

// Gateway is the entry point for user-initiated transitions. It checks
// permissions and conditions, then delegates to the executor under the same
// lease discipline the scheduler uses. Retry policy on ErrBusy belongs to
// the caller.
type Gateway struct {
	store    store.Store
	registry *registry.Registry
	executor *Executor
	data     appdata.Provider
	logger   *slog.Logger
	leaseTTL time.Duration
}

func NewGateway(st store.Store, reg *registry.Registry, executor *Executor, data appdata.Provider, logger *slog.Logger, leaseTTL time.Duration) *Gateway {
	return &Gateway{
		store:    st,
		registry: reg,
		executor: executor,
		data:     data,
		logger:   logger.With("module", "transition_gateway"),
		leaseTTL: leaseTTL,
	}
}

// RequestTransition applies the named manual transition on behalf of an
// actor. actorPermissions is the actor's pre-resolved permission set; role
// resolution happens outside the engine.
func (g *Gateway) RequestTransition(ctx context.Context, applicationID, transitionName, actorID string, actorPermissions []string) (*models.ApplicationWorkflowState, error) {
	holderToken := uuid.New().String()

	if _, err := g.store.AcquireLease(ctx, applicationID, holderToken, g.leaseTTL); err != nil {
		if store.IsLeaseHeld(err) {
			return nil, fmt.Errorf("%w: %w", ErrBusy, err)
		}

		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}

	defer func() {
		if err := g.store.ReleaseLease(ctx, applicationID, holderToken); err != nil {
			g.logger.WarnContext(ctx, "Failed to release lease",
				"application_id", applicationID,
				"error", err)
		}
	}()

	state, err := g.store.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read application state: %w", err)
	}

	entry := g.registry.Get(state.TemplateID, state.TemplateVersion)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s version %d", ErrTemplateNotRegistered, state.TemplateID, state.TemplateVersion)
	}

	transition := entry.Graph.FindFrom(state.CurrentStageID, transitionName)
	if transition == nil {
		return nil, fmt.Errorf("%w: %q from stage %q", ErrNoSuchTransition, transitionName, state.CurrentStageID)
	}

	if missing := missingPermissions(transition.RequiredPermissions, actorPermissions); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrPermissionDenied, missing)
	}

	if transition.Condition != nil {
		snapshot, err := g.data.Snapshot(ctx, applicationID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch application data: %w", err)
		}

		if !conditions.Evaluate(transition.Condition, snapshot) {
			return nil, fmt.Errorf("%w: %q", ErrConditionNotMet, transitionName)
		}
	}

	return g.executor.Apply(ctx, applicationID, holderToken, transition, actorID)
}

// missingPermissions returns the required permissions the actor does not
// hold.
func missingPermissions(required, held []string) []string {
	heldSet := make(map[string]struct{}, len(held))
	for _, permission := range held {
		heldSet[permission] = struct{}{}
	}

	missing := make([]string, 0)

	for _, permission := range required {
		if _, ok := heldSet[permission]; !ok {
			missing = append(missing, permission)
		}
	}

	return missing
}
