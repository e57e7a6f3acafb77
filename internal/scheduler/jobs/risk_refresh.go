package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/internal/strategyconfig"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// Refresher recomputes risk labels. *performance.Service implements it.
type Refresher interface {
	RefreshRisk(ctx context.Context, period string) (*performance.RefreshSummary, error)
}

// RiskRefreshJob re-derives risk labels of the current period
type RiskRefreshJob struct {
	refresher Refresher
	policy    *strategyconfig.Holder
	logger    *logger.Logger
}

// NewRiskRefreshJob creates a new risk refresh job
func NewRiskRefreshJob(r Refresher, policy *strategyconfig.Holder, log *logger.Logger) *RiskRefreshJob {
	return &RiskRefreshJob{
		refresher: r,
		policy:    policy,
		logger:    log,
	}
}

// Name returns the job name
func (j *RiskRefreshJob) Name() string {
	return "risk_refresh"
}

// Schedule returns the cron schedule from the policy file
func (j *RiskRefreshJob) Schedule() string {
	return j.policy.Get().Schedule.RiskRefresh
}

// Run refreshes the labels
func (j *RiskRefreshJob) Run(ctx context.Context) error {
	period := j.policy.Get().Allocation.AcademicPeriod

	sum, err := j.refresher.RefreshRisk(ctx, period)
	if err != nil {
		return fmt.Errorf("refresh risk for %s: %w", period, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"period":   period,
		"scanned":  sum.Scanned,
		"updated":  sum.Updated,
		"critical": sum.Batch.Critical,
	}).Info("Risk refresh completed")

	return nil
}
