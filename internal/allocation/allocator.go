package allocation

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wonny/acadport/backend/internal/contracts"
)

// =============================================================================
// Allocator - 순수 계산기
// =============================================================================

// Allocator assigns open subjects to teachers under a per-teacher cap.
// ⭐ SSOT: pure over its inputs; persistence belongs to Repository/Service
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocator creates an allocator drawing shuffles from rng.
// A nil rng is seeded from the clock.
func NewAllocator(rng *rand.Rand) *Allocator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Allocator{rng: rng}
}

// NewSeededAllocator creates an allocator with a fixed seed (0 = clock)
func NewSeededAllocator(seed int64) *Allocator {
	if seed == 0 {
		return NewAllocator(nil)
	}
	return NewAllocator(rand.New(rand.NewSource(seed)))
}

// Allocate proposes new assignments for every open subject in scope.
// Neither req nor snap is modified.
func (a *Allocator) Allocate(req Request, snap Snapshot) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sc := buildScope(req, snap)
	res := &Result{
		Strategy:       req.Strategy,
		NewAssignments: []contracts.Assignment{},
		FailedSubjects: []FailedSubject{},
		TeacherLoad:    sc.loadCopy(),
	}

	if len(sc.teachers) == 0 {
		res.Reason = ReasonNoTeachersAvailable
		res.Message = fmt.Sprintf("no active teachers in department %d", req.DepartmentID)
		return res, nil
	}
	if len(sc.subjects) == 0 {
		res.Reason = ReasonNoSubjectsInScope
		res.Message = fmt.Sprintf("no subjects in semesters %v for department %d", req.semesters(), req.DepartmentID)
		return res, nil
	}

	for _, sem := range sc.semesters {
		open := sc.open(sem)
		if len(open) == 0 {
			continue
		}

		var picks []contracts.TeacherID
		switch req.Strategy {
		case StrategyShuffle:
			picks = a.shufflePicks(sc.teachers, res.TeacherLoad, req.MaxLoadPerTeacher, len(open))
		case StrategyRoundRobin:
			picks = roundRobinPicks(sc.teachers, res.TeacherLoad, req.MaxLoadPerTeacher, len(open))
		}

		for i, subj := range open {
			if i >= len(picks) {
				res.FailedSubjects = append(res.FailedSubjects, FailedSubject{
					ID: subj.ID, Name: subj.Name, Semester: subj.Semester,
				})
				continue
			}
			res.NewAssignments = append(res.NewAssignments, contracts.Assignment{
				TeacherID:      picks[i],
				SubjectID:      subj.ID,
				AcademicPeriod: req.AcademicPeriod,
				Semester:       subj.Semester,
				Active:         true,
			})
			res.TeacherLoad[picks[i]]++
		}
	}

	res.TotalAssigned = len(res.NewAssignments)
	res.Success = true
	res.Message = fmt.Sprintf("assigned %d subjects", res.TotalAssigned)
	if n := len(res.FailedSubjects); n > 0 {
		res.Message += fmt.Sprintf(", %d could not be assigned", n)
	}
	return res, nil
}

// shufflePicks builds the slot pool (each teacher repeated by remaining
// capacity), shuffles it once and takes slots from the front.
func (a *Allocator) shufflePicks(teachers []contracts.Teacher, load map[contracts.TeacherID]int, max, demand int) []contracts.TeacherID {
	var pool []contracts.TeacherID
	for _, t := range teachers {
		for r := max - load[t.ID]; r > 0; r-- {
			pool = append(pool, t.ID)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	a.mu.Lock()
	a.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	a.mu.Unlock()

	if demand < len(pool) {
		pool = pool[:demand]
	}
	return pool
}

// roundRobinPicks gives subject i to available[i mod len(available)],
// dropping a teacher from available once it reaches max. The index is the
// subject position, so it is not adjusted after a removal.
func roundRobinPicks(teachers []contracts.Teacher, load map[contracts.TeacherID]int, max, demand int) []contracts.TeacherID {
	var available []contracts.TeacherID
	counts := make(map[contracts.TeacherID]int, len(teachers))
	for _, t := range teachers {
		counts[t.ID] = load[t.ID]
		if counts[t.ID] < max {
			available = append(available, t.ID)
		}
	}

	picks := make([]contracts.TeacherID, 0, demand)
	for i := 0; i < demand && len(available) > 0; i++ {
		idx := i % len(available)
		id := available[idx]
		picks = append(picks, id)
		counts[id]++
		if counts[id] >= max {
			available = append(available[:idx], available[idx+1:]...)
		}
	}
	return picks
}
