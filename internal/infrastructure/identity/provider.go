// Package identity flips the suspension flag on an organization's member
// accounts in the identity backend.
package identity

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tollgate/internal/domain/billing"
	"tollgate/internal/shared/db"
	"tollgate/internal/shared/logger"

	"tollgate/internal/infrastructure/persistence/models"
)

type Provider struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewProvider(database *gorm.DB, logger logger.Interface) billing.IdentityProvider {
	return &Provider{
		db:     database,
		logger: logger,
	}
}

func (p *Provider) conn(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, p.db)
}

// SuspendAllMembers blocks every member of the organization from signing in.
// Already-suspended members are left untouched so the update is idempotent.
func (p *Provider) SuspendAllMembers(ctx context.Context, organizationID uint) error {
	return p.setSuspended(ctx, organizationID, true)
}

// ReactivateAllMembers lifts the suspension from every member of the
// organization.
func (p *Provider) ReactivateAllMembers(ctx context.Context, organizationID uint) error {
	return p.setSuspended(ctx, organizationID, false)
}

func (p *Provider) setSuspended(ctx context.Context, organizationID uint, suspended bool) error {
	result := p.conn(ctx).Model(&models.MemberAccountModel{}).
		Where("organization_id = ? AND suspended = ?", organizationID, !suspended).
		Update("suspended", suspended)
	if result.Error != nil {
		return fmt.Errorf("failed to update member suspension: %w", result.Error)
	}

	p.logger.Infow("member suspension updated",
		"organization_id", organizationID,
		"suspended", suspended,
		"affected", result.RowsAffected,
	)
	return nil
}
