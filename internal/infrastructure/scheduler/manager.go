// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/shared/biztime"
	"tollgate/internal/shared/logger"
)

// Manager manages all scheduled jobs using gocron v2. A single scheduler
// instance carries the daily reconciliation job; jobs run in the business
// timezone so the daily boundary matches cycle dates.
type Manager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewManager creates a new Manager. It initializes gocron with the business
// timezone for cron expressions.
func NewManager(log logger.Interface) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterReconciliationJob registers the daily reconciliation job at the
// given hour of day in the business timezone. The job applies due monthly
// plan changes, renews expired cycles, and resolves pending pay-per-request
// switches; each pass is idempotent, so an extra run after a missed window
// is safe.
func (m *Manager) RegisterReconciliationJob(
	reconcileUC *usecases.RunDailyReconciliationUseCase,
	hour int,
) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("reconcile hour must be between 0 and 23, got %d", hour)
	}

	_, err := m.scheduler.NewJob(
		gocron.CronJob(fmt.Sprintf("0 %d * * *", hour), false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runReconciliation(ctx, reconcileUC)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "reconciliation"),
		gocron.WithName("daily-reconciliation"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reconciliation job", "hour", hour)
	return nil
}

func (m *Manager) runReconciliation(ctx context.Context, reconcileUC *usecases.RunDailyReconciliationUseCase) {
	m.logger.Debugw("daily reconciliation job started")

	startTime := biztime.NowUTC()
	summary := reconcileUC.Execute(ctx)

	m.logger.Infow("daily reconciliation job finished",
		"due_changes_applied", summary.DueChangesApplied,
		"cycles_renewed", summary.CyclesRenewed,
		"pay_per_request_resolved", summary.PayPerRequestResolved,
		"failures", summary.Failures,
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler. It waits for running jobs to
// complete before returning.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *Manager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
