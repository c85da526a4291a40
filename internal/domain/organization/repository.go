package organization

import (
	"context"
	"time"
)

// Repository provides access to organization plan snapshots.
//
// Update performs an optimistic-lock write keyed on the snapshot version and
// returns a conflict error when another writer got there first; callers are
// expected to treat that as retryable rather than fatal.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uint) (*Organization, error)
	Update(ctx context.Context, org *Organization) error

	// FindWithDueMonthlyChanges returns organizations whose queued monthly
	// plan change is due on or before asOf.
	FindWithDueMonthlyChanges(ctx context.Context, asOf time.Time) ([]*Organization, error)

	// FindWithExpiredCycles returns organizations whose monthly cycle ended
	// strictly before asOf and that have no pending change queued.
	FindWithExpiredCycles(ctx context.Context, asOf time.Time) ([]*Organization, error)

	// FindWithPendingPayPerRequest returns organizations with a queued
	// pay-per-request transition, regardless of its change date.
	FindWithPendingPayPerRequest(ctx context.Context) ([]*Organization, error)
}
