package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/pkg/logger"
	"github.com/wonny/acadport/backend/pkg/redis"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	LoadSnapshot(ctx context.Context, req Request) (Snapshot, error)
	SaveAssignments(ctx context.Context, proposals []contracts.Assignment) (*SaveResult, error)
	DeactivateAssignments(ctx context.Context, ids []int64) (int64, error)
}

// Publisher receives allocation events (websocket hub, audit log)
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Publishers fans an event out in order
type Publishers []Publisher

// Publish implements Publisher
func (ps Publishers) Publish(eventType string, payload interface{}) {
	for _, p := range ps {
		p.Publish(eventType, payload)
	}
}

// Event types
const (
	EventAllocationCompleted = "allocation.completed"
	EventAllocationReset     = "allocation.reset"
)

// RunEvent is published after a persisted run or reset
type RunEvent struct {
	RunID          string                 `json:"run_id"`
	DepartmentID   contracts.DepartmentID `json:"department_id"`
	AcademicPeriod string                 `json:"academic_period"`
	Strategy       Strategy               `json:"strategy,omitempty"`
	Assigned       int                    `json:"assigned"`
	Failed         int                    `json:"failed"`
	Conflicts      int                    `json:"conflicts"`
	Deactivated    int64                  `json:"deactivated"`
	At             time.Time              `json:"at"`
}

// RunOutcome is what a caller gets back from Run
type RunOutcome struct {
	RunID     string                 `json:"run_id"`
	DryRun    bool                   `json:"dry_run"`
	Result    *Result                `json:"result"`
	Saved     []contracts.Assignment `json:"saved,omitempty"`
	Conflicts []contracts.Assignment `json:"conflicts,omitempty"`
	Duration  time.Duration          `json:"duration"`
}

// ResetOutcome is what a caller gets back from Reset
type ResetOutcome struct {
	RunID       string                 `json:"run_id"`
	Candidates  []contracts.Assignment `json:"candidates"`
	Deactivated int64                  `json:"deactivated"`
}

// Service orchestrates lock → snapshot → allocate → persist → notify
type Service struct {
	store     Store
	allocator *Allocator
	locker    *redis.Locker
	cache     *redis.Cache
	publisher Publisher
	lockTTL   time.Duration
	log       *logger.Logger
}

// NewService creates a new allocation service
func NewService(store Store, allocator *Allocator, locker *redis.Locker, cache *redis.Cache, lockTTL time.Duration, log *logger.Logger) *Service {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Service{
		store:     store,
		allocator: allocator,
		locker:    locker,
		cache:     cache,
		lockTTL:   lockTTL,
		log:       log.WithComponent("allocation"),
	}
}

// SetPublisher attaches an event publisher
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Run executes one allocation run. With dryRun the proposals are returned
// without being persisted.
func (s *Service) Run(ctx context.Context, req Request, dryRun bool) (*RunOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	log := logger.FromContext(ctx, s.log).WithRun(runID).WithFields(map[string]interface{}{
		"department": req.DepartmentID,
		"period":     req.AcademicPeriod,
		"strategy":   req.Strategy,
		"dry_run":    dryRun,
	})

	lock, err := s.locker.Acquire(ctx, redis.DepartmentLockName(int64(req.DepartmentID), req.AcademicPeriod), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to release allocation lock")
		}
	}()

	snap, err := s.store.LoadSnapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	res, err := s.allocator.Allocate(req, snap)
	if err != nil {
		return nil, err
	}

	out := &RunOutcome{RunID: runID, DryRun: dryRun, Result: res}
	if !res.Success {
		log.WithField("reason", res.Reason).Warn(res.Message)
		out.Duration = time.Since(start)
		return out, nil
	}

	if !dryRun {
		saved, err := s.store.SaveAssignments(ctx, res.NewAssignments)
		if err != nil {
			return nil, fmt.Errorf("save assignments: %w", err)
		}
		out.Saved = saved.Saved
		out.Conflicts = saved.Conflicts
		if len(saved.Conflicts) > 0 {
			log.WithField("conflicts", len(saved.Conflicts)).Warn("Skipped proposals for subjects assigned concurrently")
		}

		s.invalidate(ctx, req)
		s.publish(EventAllocationCompleted, RunEvent{
			RunID:          runID,
			DepartmentID:   req.DepartmentID,
			AcademicPeriod: req.AcademicPeriod,
			Strategy:       req.Strategy,
			Assigned:       len(saved.Saved),
			Failed:         len(res.FailedSubjects),
			Conflicts:      len(saved.Conflicts),
			At:             time.Now(),
		})
	}

	out.Duration = time.Since(start)
	log.WithFields(map[string]interface{}{
		"assigned": res.TotalAssigned,
		"failed":   len(res.FailedSubjects),
		"saved":    len(out.Saved),
		"duration": out.Duration.String(),
	}).Info("Allocation run finished")

	return out, nil
}

// Reset deactivates the active assignments of the department's target
// semesters for the period
func (s *Service) Reset(ctx context.Context, req Request) (*ResetOutcome, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	lock, err := s.locker.Acquire(ctx, redis.DepartmentLockName(int64(req.DepartmentID), req.AcademicPeriod), s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.Background()) //nolint:errcheck

	snap, err := s.store.LoadSnapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	candidates, err := ResetSet(req, snap)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(candidates))
	for _, a := range candidates {
		ids = append(ids, a.ID)
	}
	n, err := s.store.DeactivateAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, req)
	s.publish(EventAllocationReset, RunEvent{
		RunID:          runID,
		DepartmentID:   req.DepartmentID,
		AcademicPeriod: req.AcademicPeriod,
		Deactivated:    n,
		At:             time.Now(),
	})

	logger.FromContext(ctx, s.log).WithRun(runID).WithFields(map[string]interface{}{
		"department":  req.DepartmentID,
		"period":      req.AcademicPeriod,
		"deactivated": n,
	}).Info("Allocation reset")

	return &ResetOutcome{RunID: runID, Candidates: candidates, Deactivated: n}, nil
}

// Stats returns workload statistics, cached per department/period
func (s *Service) Stats(ctx context.Context, req Request) (*AssignmentStats, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}

	key := redis.AllocationStatsKey(int64(req.DepartmentID), req.AcademicPeriod)
	var cached AssignmentStats
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.WithError(err).Warn("Stats cache read failed")
	} else if ok && cached.MaxLoadPerTeacher == req.MaxLoadPerTeacher && coversSemesters(&cached, req.TargetSemesters) {
		return &cached, nil
	}

	snap, err := s.store.LoadSnapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := Stats(req, snap)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, st, redis.TTLMedium); err != nil {
		s.log.WithError(err).Warn("Stats cache write failed")
	}
	return st, nil
}

// coversSemesters reports whether cached stats were computed for exactly
// the requested semesters
func coversSemesters(st *AssignmentStats, semesters []int) bool {
	if len(st.SubjectsPerSemester) != len(semesters) {
		return false
	}
	for _, sem := range semesters {
		if _, ok := st.SubjectsPerSemester[sem]; !ok {
			return false
		}
	}
	return true
}

func (s *Service) invalidate(ctx context.Context, req Request) {
	key := redis.AllocationStatsKey(int64(req.DepartmentID), req.AcademicPeriod)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WithError(err).Warn("Stats cache invalidation failed")
	}
}

func (s *Service) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}
