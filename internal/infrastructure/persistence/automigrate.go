// Package persistence holds the GORM models and schema management for the
// billing engine's tables.
package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"tollgate/internal/infrastructure/persistence/models"
)

// AutoMigrate creates or updates the billing tables. Intended for
// development and tests; production schemas are managed externally.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.PricingPlanModel{},
		&models.OrganizationModel{},
		&models.InvoiceModel{},
		&models.UsageEventModel{},
		&models.MemberAccountModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate billing tables: %w", err)
	}
	return nil
}
