package usecases

import (
	"context"
	"time"

	"tollgate/internal/shared/biztime"
	"tollgate/internal/shared/logger"
)

// ReconciliationSummary reports one daily reconciliation run. Failures are
// organizations left for the next run, not fatal errors.
type ReconciliationSummary struct {
	RanAt                 time.Time `json:"ran_at"`
	DueChangesApplied     int       `json:"due_changes_applied"`
	CyclesRenewed         int       `json:"cycles_renewed"`
	PayPerRequestResolved int       `json:"pay_per_request_resolved"`
	Failures              int       `json:"failures"`
}

// RunDailyReconciliationUseCase runs the three reconciliation passes in
// order: apply due monthly changes, auto-renew expired cycles, resolve
// pending pay-per-request transitions. Every step is idempotent per
// organization, so a partially completed run is safe to repeat.
type RunDailyReconciliationUseCase struct {
	dueChanges *ApplyDueMonthlyChangesUseCase
	renewals   *RenewCyclesUseCase
	payPerReq  *ResolvePayPerRequestUseCase
	logger     logger.Interface
	now        func() time.Time
}

func NewRunDailyReconciliationUseCase(
	dueChanges *ApplyDueMonthlyChangesUseCase,
	renewals *RenewCyclesUseCase,
	payPerReq *ResolvePayPerRequestUseCase,
	logger logger.Interface,
) *RunDailyReconciliationUseCase {
	return &RunDailyReconciliationUseCase{
		dueChanges: dueChanges,
		renewals:   renewals,
		payPerReq:  payPerReq,
		logger:     logger,
		now:        biztime.NowUTC,
	}
}

// Execute never fails the whole run for a single pass: a pass that cannot
// even list its candidates is logged and counted, and the remaining passes
// still execute.
func (uc *RunDailyReconciliationUseCase) Execute(ctx context.Context) *ReconciliationSummary {
	summary := &ReconciliationSummary{RanAt: uc.now()}

	applied, failed, err := uc.dueChanges.Execute(ctx)
	summary.DueChangesApplied = applied
	summary.Failures += failed
	if err != nil {
		summary.Failures++
	}

	renewed, failed, err := uc.renewals.Execute(ctx)
	summary.CyclesRenewed = renewed
	summary.Failures += failed
	if err != nil {
		summary.Failures++
	}

	resolved, failed, err := uc.payPerReq.Execute(ctx)
	summary.PayPerRequestResolved = resolved
	summary.Failures += failed
	if err != nil {
		summary.Failures++
	}

	uc.logger.Infow("daily reconciliation completed",
		"due_changes_applied", summary.DueChangesApplied,
		"cycles_renewed", summary.CyclesRenewed,
		"pay_per_request_resolved", summary.PayPerRequestResolved,
		"failures", summary.Failures,
	)
	return summary
}
