package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/strategyconfig"
	"github.com/wonny/acadport/backend/pkg/logger"
	"github.com/wonny/acadport/backend/pkg/redis"
)

// Allocator runs one allocation. *allocation.Service implements it.
type Allocator interface {
	Run(ctx context.Context, req allocation.Request, dryRun bool) (*allocation.RunOutcome, error)
}

// AllocationJob fills open subjects of every configured department
// ⭐ SSOT: 정기 배정 스케줄은 이 Job에서만
type AllocationJob struct {
	allocator Allocator
	policy    *strategyconfig.Holder
	logger    *logger.Logger
}

// NewAllocationJob creates a new allocation job
func NewAllocationJob(a Allocator, policy *strategyconfig.Holder, log *logger.Logger) *AllocationJob {
	return &AllocationJob{
		allocator: a,
		policy:    policy,
		logger:    log,
	}
}

// Name returns the job name
func (j *AllocationJob) Name() string {
	return "allocation"
}

// Schedule returns the cron schedule from the policy file
func (j *AllocationJob) Schedule() string {
	return j.policy.Get().Schedule.Allocation
}

// Run allocates each department in turn. A failing department does not
// stop the others; all failures are returned together. A department whose
// lock is held elsewhere is skipped.
func (j *AllocationJob) Run(ctx context.Context) error {
	cfg := j.policy.Get()
	j.logger.WithField("departments", len(cfg.Allocation.Departments)).Info("Starting scheduled allocation")

	var errs []error
	for _, d := range cfg.Allocation.Departments {
		if err := ctx.Err(); err != nil {
			return err
		}

		req := cfg.Request(contracts.DepartmentID(d))
		out, err := j.allocator.Run(ctx, req, false)
		if errors.Is(err, redis.ErrLockHeld) {
			// 다른 인스턴스가 이미 배정 중
			j.logger.WithField("department", d).Warn("Department locked by another run, skipped")
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("department %d: %w", d, err))
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"department": d,
			"run_id":     out.RunID,
			"success":    out.Result.Success,
			"assigned":   len(out.Saved),
			"failed":     len(out.Result.FailedSubjects),
		}).Info("Department allocated")
	}

	return errors.Join(errs...)
}
