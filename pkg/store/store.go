// Package store defines the workflow state store: per-application current
// stage, append-only stage history, and the per-application lease that
// serializes transition processing. Actual storage is an external
// collaborator; this package owns the contract and the error taxonomy.
package store

import (
	"context"
	"time"

	"github.com/enrollhq/admitflow/pkg/models"
)

// LeaseManager hands out time-bounded exclusive claims on application ids.
// At most one live lease per application exists at any time; holders are
// identified by an opaque token so that release and renew can verify
// ownership.
type LeaseManager interface {
	// AcquireLease claims the application for the holder. Returns
	// ErrLeaseHeld while another live lease exists. An expired lease is
	// treated as absent.
	AcquireLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error)

	// RenewLease extends a held lease. Returns ErrLeaseNotHeld when the
	// holder no longer owns a live lease.
	RenewLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error)

	// ReleaseLease drops the holder's lease. Releasing a lease that is
	// already gone is not an error; releasing someone else's lease is
	// ErrLeaseNotHeld.
	ReleaseLease(ctx context.Context, applicationID, holderToken string) error
}

// Store is the persistence boundary for application workflow state.
type Store interface {
	LeaseManager

	// Get returns the application's workflow state, or ErrStateNotFound.
	Get(ctx context.Context, applicationID string) (*models.ApplicationWorkflowState, error)

	// Create records an application entering its first stage. Returns
	// ErrStateExists when the application already has workflow state.
	Create(ctx context.Context, state *models.ApplicationWorkflowState) error

	// AppendTransition atomically closes the open history entry and opens a
	// new one in newStageID. expectedStageID guards against lost updates:
	// when the application is no longer in that stage the call fails with
	// ErrStaleTransition and records nothing.
	AppendTransition(ctx context.Context, applicationID, expectedStageID, newStageID, transitionName, triggeredBy string) (*models.ApplicationWorkflowState, error)

	// CandidateApplications returns ids of applications currently sitting
	// in any of the given stages, feeding the automatic evaluation
	// scheduler.
	CandidateApplications(ctx context.Context, templateID string, templateVersion int, stageIDs []string) ([]string, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
