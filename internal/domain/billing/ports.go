package billing

import (
	"context"
	"time"

	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
)

// UsageCounter counts billable events for an organization within an
// inclusive time window. Request-time admission reads may be served from a
// short-lived cache; the reconciliation job always reads through.
type UsageCounter interface {
	Count(ctx context.Context, organizationID uint, windowStart, windowEnd time.Time) (int64, error)
}

// InvoiceGenerator emits closure and cycle invoices. Both methods are
// idempotent per (organization, period): they return (nil, nil) when the
// period is already invoiced, and closure invoices for pay-per-request
// periods with zero usage are skipped the same way.
type InvoiceGenerator interface {
	GenerateClosureInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*Invoice, error)
	GenerateCycleInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*Invoice, error)
}

// IdentityProvider enables and disables the member accounts of an
// organization in the identity backend.
type IdentityProvider interface {
	SuspendAllMembers(ctx context.Context, organizationID uint) error
	ReactivateAllMembers(ctx context.Context, organizationID uint) error
}

// NotificationSink delivers plan-change notifications. Failures must never
// roll back the plan change that triggered them.
type NotificationSink interface {
	PlanChanged(ctx context.Context, org *organization.Organization, oldPlan, newPlan *plan.Plan) error
}
