package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tollgate/internal/domain/organization"
	"tollgate/internal/infrastructure/persistence/models"
	"tollgate/internal/shared/db"
	apperrors "tollgate/internal/shared/errors"
	"tollgate/internal/shared/logger"
)

type OrganizationRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewOrganizationRepository(db *gorm.DB, logger logger.Interface) organization.Repository {
	return &OrganizationRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *OrganizationRepositoryImpl) conn(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

func (r *OrganizationRepositoryImpl) Create(ctx context.Context, org *organization.Organization) error {
	var model models.OrganizationModel
	model.FromEntity(org)
	model.ID = 0

	if err := r.conn(ctx).WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Errorw("failed to create organization", "error", err, "name", org.Name())
		return fmt.Errorf("failed to create organization: %w", err)
	}

	if err := org.SetID(model.ID); err != nil {
		return err
	}
	org.MarkPersisted()

	r.logger.Infow("organization created", "organization_id", model.ID)
	return nil
}

func (r *OrganizationRepositoryImpl) GetByID(ctx context.Context, id uint) (*organization.Organization, error) {
	var model models.OrganizationModel
	if err := r.conn(ctx).WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get organization", "error", err, "organization_id", id)
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return model.ToEntity()
}

// Update writes the snapshot with an optimistic-lock guard: the row must
// still hold the version this aggregate was loaded with. The in-memory
// version may be several bumps ahead after a multi-step mutation.
func (r *OrganizationRepositoryImpl) Update(ctx context.Context, org *organization.Organization) error {
	var model models.OrganizationModel
	model.FromEntity(org)

	result := r.conn(ctx).WithContext(ctx).Model(&models.OrganizationModel{}).
		Where("id = ? AND version = ?", org.ID(), org.PersistedVersion()).
		Updates(map[string]interface{}{
			"name":                                model.Name,
			"billing_email":                       model.BillingEmail,
			"enabled":                             model.Enabled,
			"pricing_plan_id":                     model.PricingPlanID,
			"monthly_quota":                       model.MonthlyQuota,
			"market_version":                      model.MarketVersion,
			"trial_expires_at":                    model.TrialExpiresAt,
			"trial_permanently_expired":           model.TrialPermanentlyExpired,
			"monthly_plan_start_date":             model.MonthlyPlanStartDate,
			"monthly_plan_end_date":               model.MonthlyPlanEndDate,
			"pending_monthly_plan_id":             model.PendingMonthlyPlanID,
			"pending_monthly_plan_change_date":    model.PendingMonthlyPlanChangeDate,
			"pending_pay_per_request_plan_id":     model.PendingPayPerRequestPlanID,
			"pending_pay_per_request_change_date": model.PendingPayPerRequestChangeDate,
			"last_pay_per_request_invoice_date":   model.LastPayPerRequestInvoiceDate,
			"version":                             model.Version,
			"updated_at":                          model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update organization", "error", result.Error, "organization_id", org.ID())
		return fmt.Errorf("failed to update organization: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewConflictError("organization snapshot was modified concurrently")
	}

	org.MarkPersisted()
	return nil
}

func (r *OrganizationRepositoryImpl) FindWithDueMonthlyChanges(ctx context.Context, asOf time.Time) ([]*organization.Organization, error) {
	var orgModels []*models.OrganizationModel
	err := r.conn(ctx).WithContext(ctx).
		Where("pending_monthly_plan_id IS NOT NULL AND pending_monthly_plan_change_date <= ?", asOf).
		Find(&orgModels).Error
	if err != nil {
		r.logger.Errorw("failed to find organizations with due monthly changes", "error", err)
		return nil, fmt.Errorf("failed to find organizations with due monthly changes: %w", err)
	}

	return r.toEntities(orgModels)
}

func (r *OrganizationRepositoryImpl) FindWithExpiredCycles(ctx context.Context, asOf time.Time) ([]*organization.Organization, error) {
	var orgModels []*models.OrganizationModel
	err := r.conn(ctx).WithContext(ctx).
		Where("monthly_plan_end_date < ? AND pending_monthly_plan_id IS NULL AND pending_pay_per_request_plan_id IS NULL", asOf).
		Find(&orgModels).Error
	if err != nil {
		r.logger.Errorw("failed to find organizations with expired cycles", "error", err)
		return nil, fmt.Errorf("failed to find organizations with expired cycles: %w", err)
	}

	return r.toEntities(orgModels)
}

func (r *OrganizationRepositoryImpl) FindWithPendingPayPerRequest(ctx context.Context) ([]*organization.Organization, error) {
	var orgModels []*models.OrganizationModel
	err := r.conn(ctx).WithContext(ctx).
		Where("pending_pay_per_request_plan_id IS NOT NULL").
		Find(&orgModels).Error
	if err != nil {
		r.logger.Errorw("failed to find organizations with pending pay-per-request changes", "error", err)
		return nil, fmt.Errorf("failed to find organizations with pending pay-per-request changes: %w", err)
	}

	return r.toEntities(orgModels)
}

func (r *OrganizationRepositoryImpl) toEntities(orgModels []*models.OrganizationModel) ([]*organization.Organization, error) {
	orgs := make([]*organization.Organization, 0, len(orgModels))
	for _, model := range orgModels {
		org, err := model.ToEntity()
		if err != nil {
			// A malformed row must not abort the whole sweep.
			r.logger.Errorw("failed to convert organization model", "error", err, "organization_id", model.ID)
			continue
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}
