package plan

import "context"

// Repository provides access to the pricing plan catalog.
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	Update(ctx context.Context, plan *Plan) error

	// ListActive returns active plans for a market version, ordered for display.
	ListActive(ctx context.Context, marketVersion int) ([]*Plan, error)

	// FindActivePayPerRequestPlan returns the active pay-per-request plan for
	// the given market version, or nil if the catalog has none. It backs the
	// overage fallback pricing decision.
	FindActivePayPerRequestPlan(ctx context.Context, marketVersion int) (*Plan, error)
}
