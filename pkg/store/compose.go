package store

import (
	"context"
	"time"

	"github.com/enrollhq/admitflow/pkg/models"
)

// leaseOverride delegates lease operations to a dedicated lease manager
// while keeping state operations on the wrapped store.
type leaseOverride struct {
	Store
	leases LeaseManager
}

// WithLeaseManager composes a store with a separate lease manager, e.g. a
// SQL-backed state store with Redis leases.
func WithLeaseManager(st Store, leases LeaseManager) Store {
	return &leaseOverride{Store: st, leases: leases}
}

func (s *leaseOverride) AcquireLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	return s.leases.AcquireLease(ctx, applicationID, holderToken, ttl)
}

func (s *leaseOverride) RenewLease(ctx context.Context, applicationID, holderToken string, ttl time.Duration) (*models.Lease, error) {
	return s.leases.RenewLease(ctx, applicationID, holderToken, ttl)
}

func (s *leaseOverride) ReleaseLease(ctx context.Context, applicationID, holderToken string) error {
	return s.leases.ReleaseLease(ctx, applicationID, holderToken)
}
