package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tollgate/internal/domain/billing"
	"tollgate/internal/infrastructure/persistence/models"
	"tollgate/internal/shared/db"
	"tollgate/internal/shared/logger"
)

type InvoiceRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewInvoiceRepository(db *gorm.DB, logger logger.Interface) billing.InvoiceRepository {
	return &InvoiceRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *InvoiceRepositoryImpl) conn(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

func (r *InvoiceRepositoryImpl) Create(ctx context.Context, invoice *billing.Invoice) error {
	var model models.InvoiceModel
	model.FromEntity(invoice)
	model.ID = 0

	if err := r.conn(ctx).WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Errorw("failed to create invoice",
			"error", err,
			"organization_id", invoice.OrganizationID(),
			"period_start", invoice.PeriodStart(),
			"period_end", invoice.PeriodEnd(),
		)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := invoice.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("invoice created",
		"invoice_id", model.ID,
		"organization_id", invoice.OrganizationID(),
		"kind", invoice.Kind(),
		"amount", invoice.Amount(),
	)
	return nil
}

func (r *InvoiceRepositoryImpl) ExistsForPeriod(ctx context.Context, organizationID uint, periodStart, periodEnd time.Time) (bool, error) {
	var count int64
	err := r.conn(ctx).WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("organization_id = ? AND period_start = ? AND period_end = ?", organizationID, periodStart, periodEnd).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to check invoice existence", "error", err, "organization_id", organizationID)
		return false, fmt.Errorf("failed to check invoice existence: %w", err)
	}

	return count > 0, nil
}

func (r *InvoiceRepositoryImpl) ListByOrganization(ctx context.Context, organizationID uint) ([]*billing.Invoice, error) {
	var invoiceModels []*models.InvoiceModel
	err := r.conn(ctx).WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("period_start DESC").
		Find(&invoiceModels).Error
	if err != nil {
		r.logger.Errorw("failed to list invoices", "error", err, "organization_id", organizationID)
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]*billing.Invoice, 0, len(invoiceModels))
	for _, model := range invoiceModels {
		inv, err := model.ToEntity()
		if err != nil {
			r.logger.Errorw("failed to convert invoice model", "error", err, "invoice_id", model.ID)
			continue
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
