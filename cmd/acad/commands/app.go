package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/audit"
	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/internal/scheduler"
	"github.com/wonny/acadport/backend/internal/scheduler/jobs"
	"github.com/wonny/acadport/backend/internal/strategyconfig"
	"github.com/wonny/acadport/backend/pkg/config"
	"github.com/wonny/acadport/backend/pkg/database"
	"github.com/wonny/acadport/backend/pkg/logger"
	"github.com/wonny/acadport/backend/pkg/redis"
)

// keyPrefix namespaces every Redis key this binary writes
const keyPrefix = "acadport"

// app holds the wired dependencies shared by commands that touch storage
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redis.Client
	policy *strategyconfig.Holder

	alloc    *allocation.Service
	perf     *performance.Service
	runs     *audit.Repository
	recorder *audit.Recorder
}

// loadBase loads config, logger and policy. No connections are opened.
func loadBase() (*config.Config, *logger.Logger, *strategyconfig.Config, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Resolve policy (file > environment)
	pol, _, err := strategyconfig.Resolve(policyFile, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load policy: %w", err)
	}
	for _, w := range strategyconfig.Warn(pol) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return cfg, log, pol, nil
}

// newApp connects to PostgreSQL and Redis and wires the services
func newApp(ctx context.Context) (*app, error) {
	cfg, log, pol, err := loadBase()
	if err != nil {
		return nil, err
	}

	// 4. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis (disabled client when REDIS_ENABLED=false)
	rc, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	classPolicy, err := pol.Policy()
	if err != nil {
		db.Close()
		rc.Close()
		return nil, fmt.Errorf("classification policy: %w", err)
	}

	cache := redis.NewCache(rc, keyPrefix)

	// 6. Create services
	allocSvc := allocation.NewService(
		allocation.NewRepository(db.Pool),
		allocation.NewSeededAllocator(pol.Allocation.Seed),
		redis.NewLocker(rc, keyPrefix),
		cache,
		cfg.Allocation.LockTTL,
		log.WithComponent("allocation"),
	)

	perfSvc, err := performance.NewService(performance.NewRepository(db.Pool), cache, classPolicy, log.WithComponent("performance"))
	if err != nil {
		db.Close()
		rc.Close()
		return nil, fmt.Errorf("performance service: %w", err)
	}
	perfSvc.SetNoise(performance.NewSeededNoise(pol.Allocation.Seed))

	// 7. Run log (every persisted run or reset, from any entry point)
	holder := strategyconfig.NewHolder(pol)
	runs := audit.NewRepository(db.Pool)
	recorder := audit.NewRecorder(runs, func() string {
		h, err := strategyconfig.Hash(holder.Get())
		if err != nil {
			return ""
		}
		return h
	}, log)
	allocSvc.SetPublisher(recorder)

	log.WithFields(map[string]interface{}{
		"policy": pol.Meta.PolicyID,
		"redis":  rc.Enabled(),
	}).Info("Application initialized")

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    rc,
		policy:   holder,
		alloc:    allocSvc,
		perf:     perfSvc,
		runs:     runs,
		recorder: recorder,
	}, nil
}

// Close releases connections
func (a *app) Close() {
	a.db.Close()
	_ = a.redis.Close()
}

// applyPolicy swaps in a reloaded policy. The allocator seed is fixed at
// startup; everything else takes effect immediately.
func (a *app) applyPolicy(pol *strategyconfig.Config) {
	classPolicy, err := pol.Policy()
	if err != nil {
		a.log.WithError(err).Error("Reloaded policy rejected")
		return
	}
	if err := a.perf.SetPolicy(classPolicy); err != nil {
		a.log.WithError(err).Error("Reloaded policy rejected")
		return
	}
	a.policy.Set(pol)

	for _, w := range strategyconfig.Warn(pol) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}
}

// watchPolicy reloads the policy file until ctx is done. No-op for an
// environment policy.
func (a *app) watchPolicy(ctx context.Context, onChange func()) {
	path := policyFile
	if path == "" {
		path = a.cfg.PolicyFile
	}
	if path == "" {
		return
	}

	go func() {
		err := strategyconfig.Watch(ctx, path, a.log, func(pol *strategyconfig.Config, _ []byte) {
			a.applyPolicy(pol)
			if onChange != nil {
				onChange()
			}
		})
		if err != nil {
			a.log.WithError(err).Error("Policy watcher stopped")
		}
	}()
}

// newScheduler registers the allocation and risk refresh jobs
func (a *app) newScheduler() (*scheduler.Scheduler, []scheduler.Job, error) {
	var opts []scheduler.Option
	if tz := a.policy.Get().Meta.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, nil, fmt.Errorf("load timezone: %w", err)
		}
		opts = append(opts, scheduler.WithLocation(loc))
	}

	sched := scheduler.New(a.log, opts...)
	registered := []scheduler.Job{
		jobs.NewAllocationJob(a.alloc, a.policy, a.log.WithComponent("job")),
		jobs.NewRiskRefreshJob(a.perf, a.policy, a.log.WithComponent("job")),
	}
	for _, job := range registered {
		if job.Schedule() == "" {
			a.log.WithField("job", job.Name()).Info("No schedule configured, job is manual only")
		}
		if err := sched.AddJob(job); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}
	return sched, registered, nil
}

// reschedule re-registers jobs after a policy reload changed their specs
func reschedule(sched *scheduler.Scheduler, registered []scheduler.Job, log *logger.Logger) {
	current := sched.GetJobStats()
	for _, job := range registered {
		if st, ok := current[job.Name()]; ok && st.Schedule == job.Schedule() {
			continue
		}
		_ = sched.RemoveJob(job.Name())
		if err := sched.AddJob(job); err != nil {
			log.WithError(err).WithField("job", job.Name()).Error("Failed to reschedule job")
			continue
		}
		log.WithFields(map[string]interface{}{
			"job":      job.Name(),
			"schedule": job.Schedule(),
		}).Info("Job rescheduled")
	}
}
