package usecases

import (
	"context"
	"fmt"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
	apperrors "tollgate/internal/shared/errors"
	"tollgate/internal/shared/logger"
)

// ListActivePlansUseCase returns the purchasable catalog for a market version.
type ListActivePlansUseCase struct {
	planRepo plan.Repository
	logger   logger.Interface
}

func NewListActivePlansUseCase(planRepo plan.Repository, logger logger.Interface) *ListActivePlansUseCase {
	return &ListActivePlansUseCase{planRepo: planRepo, logger: logger}
}

func (uc *ListActivePlansUseCase) Execute(ctx context.Context, marketVersion int) ([]*plan.Plan, error) {
	plans, err := uc.planRepo.ListActive(ctx, marketVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}
	return plans, nil
}

// GetOrganizationUseCase returns an organization's plan snapshot.
type GetOrganizationUseCase struct {
	orgRepo organization.Repository
	logger  logger.Interface
}

func NewGetOrganizationUseCase(orgRepo organization.Repository, logger logger.Interface) *GetOrganizationUseCase {
	return &GetOrganizationUseCase{orgRepo: orgRepo, logger: logger}
}

func (uc *GetOrganizationUseCase) Execute(ctx context.Context, organizationID uint) (*organization.Organization, error) {
	org, err := uc.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, apperrors.NewNotFoundError("organization not found")
	}
	return org, nil
}

// ListInvoicesUseCase returns an organization's invoices, newest period first.
type ListInvoicesUseCase struct {
	orgRepo  organization.Repository
	invoices billing.InvoiceRepository
	logger   logger.Interface
}

func NewListInvoicesUseCase(
	orgRepo organization.Repository,
	invoices billing.InvoiceRepository,
	logger logger.Interface,
) *ListInvoicesUseCase {
	return &ListInvoicesUseCase{orgRepo: orgRepo, invoices: invoices, logger: logger}
}

func (uc *ListInvoicesUseCase) Execute(ctx context.Context, organizationID uint) ([]*billing.Invoice, error) {
	org, err := uc.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, apperrors.NewNotFoundError("organization not found")
	}

	invoices, err := uc.invoices.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}
