package repository

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tollgate/internal/domain/plan"
	"tollgate/internal/infrastructure/persistence"
	"tollgate/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, persistence.AutoMigrate(db))

	return db
}

func newTestLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func uintPtr(v uint) *uint       { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64    { return &v }
func intPtr(v int) *int          { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestPlan(t *testing.T, name, slug string, pricePerMonth, pricePerRequest *uint64,
	monthlyQuota *int64, trialDays *int, marketVersion int) *plan.Plan {
	t.Helper()

	p, err := plan.NewPlan(name, slug, pricePerMonth, pricePerRequest, monthlyQuota, trialDays, marketVersion, "USD")
	require.NoError(t, err)
	return p
}
