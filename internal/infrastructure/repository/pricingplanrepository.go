package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tollgate/internal/domain/plan"
	"tollgate/internal/infrastructure/persistence/models"
	"tollgate/internal/shared/logger"
)

type PricingPlanRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPricingPlanRepository(db *gorm.DB, logger logger.Interface) plan.Repository {
	return &PricingPlanRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *PricingPlanRepositoryImpl) Create(ctx context.Context, p *plan.Plan) error {
	var model models.PricingPlanModel
	model.FromEntity(p)
	model.ID = 0

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Errorw("failed to create pricing plan", "error", err, "slug", p.Slug())
		return fmt.Errorf("failed to create pricing plan: %w", err)
	}

	if err := p.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("pricing plan created", "plan_id", model.ID, "slug", p.Slug())
	return nil
}

func (r *PricingPlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*plan.Plan, error) {
	var model models.PricingPlanModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get pricing plan", "error", err, "plan_id", id)
		return nil, fmt.Errorf("failed to get pricing plan: %w", err)
	}

	return model.ToEntity()
}

func (r *PricingPlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	var model models.PricingPlanModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get pricing plan by slug", "error", err, "slug", slug)
		return nil, fmt.Errorf("failed to get pricing plan by slug: %w", err)
	}

	return model.ToEntity()
}

func (r *PricingPlanRepositoryImpl) Update(ctx context.Context, p *plan.Plan) error {
	var model models.PricingPlanModel
	model.FromEntity(p)

	result := r.db.WithContext(ctx).Model(&models.PricingPlanModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]interface{}{
			"name":               model.Name,
			"price_per_month":    model.PricePerMonth,
			"price_per_request":  model.PricePerRequest,
			"monthly_quota":      model.MonthlyQuota,
			"trial_period_days":  model.TrialPeriodDays,
			"currency":           model.Currency,
			"is_active":          model.IsActive,
			"sort_order":         model.SortOrder,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update pricing plan", "error", result.Error, "plan_id", p.ID())
		return fmt.Errorf("failed to update pricing plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return plan.ErrPlanNotFound
	}

	return nil
}

func (r *PricingPlanRepositoryImpl) ListActive(ctx context.Context, marketVersion int) ([]*plan.Plan, error) {
	var planModels []*models.PricingPlanModel
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND market_version = ?", true, marketVersion).
		Order("sort_order ASC, id ASC").
		Find(&planModels).Error
	if err != nil {
		r.logger.Errorw("failed to list active pricing plans", "error", err, "market_version", marketVersion)
		return nil, fmt.Errorf("failed to list active pricing plans: %w", err)
	}

	plans := make([]*plan.Plan, 0, len(planModels))
	for _, model := range planModels {
		p, err := model.ToEntity()
		if err != nil {
			r.logger.Errorw("failed to convert pricing plan model", "error", err, "plan_id", model.ID)
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// FindActivePayPerRequestPlan returns the catalog's overage fallback for the
// market version: active, per-request priced, not monthly, not a trial.
func (r *PricingPlanRepositoryImpl) FindActivePayPerRequestPlan(ctx context.Context, marketVersion int) (*plan.Plan, error) {
	var model models.PricingPlanModel
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND market_version = ?", true, marketVersion).
		Where("price_per_request IS NOT NULL AND price_per_request > 0").
		Where("(price_per_month IS NULL OR price_per_month = 0)").
		Where("(trial_period_days IS NULL OR trial_period_days = 0)").
		Order("sort_order ASC, id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find pay-per-request fallback plan", "error", err, "market_version", marketVersion)
		return nil, fmt.Errorf("failed to find pay-per-request fallback plan: %w", err)
	}

	return model.ToEntity()
}
