package allocation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wonny/acadport/backend/internal/contracts"
)

// ErrConfiguration is returned for invalid run parameters. Nothing is computed.
var ErrConfiguration = errors.New("allocation: configuration error")

// Strategy selects how teachers are drawn for open subjects
type Strategy string

const (
	// StrategyShuffle draws from a shuffled pool of remaining teacher slots
	StrategyShuffle Strategy = "shuffle"
	// StrategyRoundRobin cycles over teachers below max load, deterministic
	StrategyRoundRobin Strategy = "round_robin"
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyShuffle, StrategyRoundRobin:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, s)
	}
}

// Request describes one allocation run.
// All scoping is explicit; nothing is read from ambient state.
type Request struct {
	DepartmentID      contracts.DepartmentID `json:"department_id"`
	AcademicPeriod    string                 `json:"academic_period"`
	TargetSemesters   []int                  `json:"target_semesters"`
	MaxLoadPerTeacher int                    `json:"max_load_per_teacher"`
	Strategy          Strategy               `json:"strategy"`
}

// Validate checks every run parameter
func (r Request) Validate() error {
	if err := r.validateScope(); err != nil {
		return err
	}
	if r.MaxLoadPerTeacher <= 0 {
		return fmt.Errorf("%w: max load per teacher must be positive, got %d", ErrConfiguration, r.MaxLoadPerTeacher)
	}
	if _, err := ParseStrategy(string(r.Strategy)); err != nil {
		return err
	}
	return nil
}

// validateScope checks the parameters that select subjects and assignments
func (r Request) validateScope() error {
	if r.AcademicPeriod == "" {
		return fmt.Errorf("%w: academic period is required", ErrConfiguration)
	}
	if len(r.TargetSemesters) == 0 {
		return fmt.Errorf("%w: target semesters must not be empty", ErrConfiguration)
	}
	seen := make(map[int]bool, len(r.TargetSemesters))
	for _, s := range r.TargetSemesters {
		if s <= 0 {
			return fmt.Errorf("%w: invalid semester code %d", ErrConfiguration, s)
		}
		if seen[s] {
			return fmt.Errorf("%w: duplicate semester code %d", ErrConfiguration, s)
		}
		seen[s] = true
	}
	return nil
}

// semesters returns the target semesters in ascending order
func (r Request) semesters() []int {
	out := append([]int(nil), r.TargetSemesters...)
	sort.Ints(out)
	return out
}

// Snapshot is the read-only view of storage a run works on
type Snapshot struct {
	Teachers    []contracts.Teacher    `json:"teachers"`
	Subjects    []contracts.Subject    `json:"subjects"`
	Assignments []contracts.Assignment `json:"assignments"`
}

// Reason explains an unsuccessful run
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoTeachersAvailable Reason = "no_teachers_available"
	ReasonNoSubjectsInScope   Reason = "no_subjects_in_scope"
)

// FailedSubject is an open subject no teacher slot was left for
type FailedSubject struct {
	ID       contracts.SubjectID `json:"id"`
	Name     string              `json:"name"`
	Semester int                 `json:"semester"`
}

// Result of one allocation run. Partial allocation is still Success;
// unplaced subjects are listed in FailedSubjects.
type Result struct {
	Success        bool                        `json:"success"`
	Reason         Reason                      `json:"reason,omitempty"`
	Message        string                      `json:"message"`
	Strategy       Strategy                    `json:"strategy"`
	NewAssignments []contracts.Assignment      `json:"new_assignments"`
	FailedSubjects []FailedSubject             `json:"failed_subjects"`
	TotalAssigned  int                         `json:"total_assigned"`
	TeacherLoad    map[contracts.TeacherID]int `json:"teacher_load"`
}
