// Package memory provides an in-memory state store implementation for tests
// and local development. All guarantees of the store contract hold, including
// lease exclusivity under concurrent acquisition.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/store"
)

// Store implements store.Store over mutex-guarded maps.
type Store struct {
	mu     sync.Mutex
	states map[string]*models.ApplicationWorkflowState
	leases map[string]*models.Lease
	now    func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		states: make(map[string]*models.ApplicationWorkflowState),
		leases: make(map[string]*models.Lease),
		now:    time.Now,
	}
}

// NewStoreWithClock creates a store with an injected clock, for lease expiry
// tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now

	return s
}

func (s *Store) Get(_ context.Context, applicationID string) (*models.ApplicationWorkflowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[applicationID]
	if !ok {
		return nil, store.NewStateError("Get", applicationID, store.ErrStateNotFound)
	}

	return state.Clone(), nil
}

func (s *Store) Create(_ context.Context, state *models.ApplicationWorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[state.ApplicationID]; exists {
		return store.NewStateError("Create", state.ApplicationID, store.ErrStateExists)
	}

	s.states[state.ApplicationID] = state.Clone()

	return nil
}

func (s *Store) AppendTransition(_ context.Context, applicationID, expectedStageID, newStageID, transitionName, triggeredBy string) (*models.ApplicationWorkflowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[applicationID]
	if !ok {
		return nil, store.NewStateError("AppendTransition", applicationID, store.ErrStateNotFound)
	}

	if state.CurrentStageID != expectedStageID {
		return nil, store.NewStateError("AppendTransition", applicationID, store.ErrStaleTransition)
	}

	now := s.now().UTC()

	if current := state.CurrentEntry(); current != nil {
		current.ExitedAt = &now
	}

	entryID, err := uuid.NewV7()
	if err != nil {
		return nil, store.NewStateError("AppendTransition", applicationID, err)
	}

	state.History = append(state.History, models.HistoryEntry{
		ID:             entryID.String(),
		StageID:        newStageID,
		EnteredAt:      now,
		TransitionName: transitionName,
		TriggeredBy:    triggeredBy,
	})
	state.CurrentStageID = newStageID
	state.EnteredAt = now

	return state.Clone(), nil
}

func (s *Store) CandidateApplications(_ context.Context, templateID string, templateVersion int, stageIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]struct{}, len(stageIDs))
	for _, id := range stageIDs {
		wanted[id] = struct{}{}
	}

	candidates := make([]string, 0)

	for _, state := range s.states {
		if state.TemplateID != templateID || state.TemplateVersion != templateVersion {
			continue
		}

		if _, ok := wanted[state.CurrentStageID]; ok {
			candidates = append(candidates, state.ApplicationID)
		}
	}

	return candidates, nil
}

func (s *Store) AcquireLease(_ context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if existing, ok := s.leases[applicationID]; ok && !existing.Expired(now) {
		if existing.HolderToken != holderToken {
			return nil, store.NewStateError("AcquireLease", applicationID, store.ErrLeaseHeld)
		}
	}

	lease := &models.Lease{
		ApplicationID: applicationID,
		HolderToken:   holderToken,
		ExpiresAt:     now.Add(ttl),
	}
	s.leases[applicationID] = lease

	return lease, nil
}

func (s *Store) RenewLease(_ context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	existing, ok := s.leases[applicationID]
	if !ok || existing.Expired(now) || existing.HolderToken != holderToken {
		return nil, store.NewStateError("RenewLease", applicationID, store.ErrLeaseNotHeld)
	}

	existing.ExpiresAt = now.Add(ttl)

	return existing, nil
}

func (s *Store) ReleaseLease(_ context.Context, applicationID, holderToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.leases[applicationID]
	if !ok || existing.Expired(s.now()) {
		return nil
	}

	if existing.HolderToken != holderToken {
		return store.NewStateError("ReleaseLease", applicationID, store.ErrLeaseNotHeld)
	}

	delete(s.leases, applicationID)

	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
