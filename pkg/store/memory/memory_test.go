package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrollhq/admitflow/pkg/models"
	"github.com/enrollhq/admitflow/pkg/store"
)

func newState(applicationID string) *models.ApplicationWorkflowState {
	now := time.Now().UTC()

	return &models.ApplicationWorkflowState{
		ApplicationID:   applicationID,
		TemplateID:      "undergrad-admissions",
		TemplateVersion: 1,
		CurrentStageID:  "submitted",
		EnteredAt:       now,
		History: []models.HistoryEntry{{
			ID:             "entry-1",
			StageID:        "submitted",
			EnteredAt:      now,
			TransitionName: "enrolled",
			TriggeredBy:    models.TriggeredByAutomatic,
		}},
	}
}

func openEntries(state *models.ApplicationWorkflowState) int {
	count := 0

	for _, entry := range state.History {
		if entry.ExitedAt == nil {
			count++
		}
	}

	return count
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Get(context.Background(), "app-404")

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStateNotFound)
}

func TestCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newState("app-1")))

	err := s.Create(ctx, newState("app-1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStateExists)
}

func TestAppendTransition_Invariants(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newState("app-1")))

	state, err := s.AppendTransition(ctx, "app-1", "submitted", "document-verification", "Initial Screening Passed", models.TriggeredByAutomatic)
	require.NoError(t, err)

	// History grew by exactly one, exactly one entry is open, and the prior
	// entry got its exit timestamp.
	assert.Len(t, state.History, 2)
	assert.Equal(t, 1, openEntries(state))
	assert.NotNil(t, state.History[0].ExitedAt)
	assert.Nil(t, state.History[1].ExitedAt)
	assert.Equal(t, "document-verification", state.CurrentStageID)
	assert.Equal(t, "Initial Screening Passed", state.History[1].TransitionName)
}

func TestAppendTransition_Stale(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newState("app-1")))

	_, err := s.AppendTransition(ctx, "app-1", "decision", "accepted", "Accept", "reviewer-7")

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStaleTransition)

	// Nothing was recorded.
	state, err := s.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Len(t, state.History, 1)
	assert.Equal(t, "submitted", state.CurrentStageID)
}

func TestAcquireLease_Exclusive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.AcquireLease(ctx, "app-1", "holder-a", time.Minute)
	require.NoError(t, err)

	_, err = s.AcquireLease(ctx, "app-1", "holder-b", time.Minute)

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrLeaseHeld)

	// A different application is unaffected.
	_, err = s.AcquireLease(ctx, "app-2", "holder-b", time.Minute)
	assert.NoError(t, err)
}

func TestAcquireLease_ConcurrentSafety(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	const holders = 32

	var wg sync.WaitGroup

	successes := make(chan string, holders)

	for i := 0; i < holders; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			token := string(rune('a' + i))
			if _, err := s.AcquireLease(ctx, "app-1", token, time.Minute); err == nil {
				successes <- token
			}
		}(i)
	}

	wg.Wait()
	close(successes)

	// Exactly one concurrent acquirer wins.
	assert.Len(t, drain(successes), 1)
}

func TestAcquireLease_ExpiredLeaseIsReacquirable(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewStoreWithClock(func() time.Time { return now })

	_, err := s.AcquireLease(ctx, "app-1", "holder-a", 30*time.Second)
	require.NoError(t, err)

	now = now.Add(time.Minute)

	lease, err := s.AcquireLease(ctx, "app-1", "holder-b", 30*time.Second)

	require.NoError(t, err)
	assert.Equal(t, "holder-b", lease.HolderToken)
}

func TestRenewLease(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.AcquireLease(ctx, "app-1", "holder-a", time.Minute)
	require.NoError(t, err)

	_, err = s.RenewLease(ctx, "app-1", "holder-a", time.Minute)
	assert.NoError(t, err)

	_, err = s.RenewLease(ctx, "app-1", "holder-b", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrLeaseNotHeld)

	_, err = s.RenewLease(ctx, "app-2", "holder-a", time.Minute)
	assert.ErrorIs(t, err, store.ErrLeaseNotHeld)
}

func TestReleaseLease(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.AcquireLease(ctx, "app-1", "holder-a", time.Minute)
	require.NoError(t, err)

	// Releasing someone else's lease is refused.
	err = s.ReleaseLease(ctx, "app-1", "holder-b")
	assert.ErrorIs(t, err, store.ErrLeaseNotHeld)

	require.NoError(t, s.ReleaseLease(ctx, "app-1", "holder-a"))

	// Released leases are immediately reacquirable, and double release is
	// not an error.
	_, err = s.AcquireLease(ctx, "app-1", "holder-b", time.Minute)
	assert.NoError(t, err)
	assert.NoError(t, s.ReleaseLease(ctx, "app-2", "holder-a"))
}

func TestCandidateApplications(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newState("app-1")))
	require.NoError(t, s.Create(ctx, newState("app-2")))

	other := newState("app-3")
	other.TemplateVersion = 2
	require.NoError(t, s.Create(ctx, other))

	_, err := s.AppendTransition(ctx, "app-2", "submitted", "decision", "Fast Track", "dean-1")
	require.NoError(t, err)

	candidates, err := s.CandidateApplications(ctx, "undergrad-admissions", 1, []string{"submitted"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-1"}, candidates)
}

func TestGet_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newState("app-1")))

	first, err := s.Get(ctx, "app-1")
	require.NoError(t, err)

	first.CurrentStageID = "tampered"
	first.History[0].StageID = "tampered"

	second, err := s.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "submitted", second.CurrentStageID)
	assert.Equal(t, "submitted", second.History[0].StageID)
}

func drain(ch chan string) []string {
	values := make([]string, 0)
	for value := range ch {
		values = append(values, value)
	}

	return values
}
