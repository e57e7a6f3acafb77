package allocation

import (
	"math"
	"sort"

	"github.com/wonny/acadport/backend/internal/contracts"
)

// TeacherWorkload is one row of the workload table
type TeacherWorkload struct {
	TeacherID contracts.TeacherID `json:"teacher_id"`
	Name      string              `json:"name"`
	Load      int                 `json:"load"`
	Remaining int                 `json:"remaining"`
}

// AssignmentStats summarises a department's allocation state for a period
type AssignmentStats struct {
	DepartmentID        contracts.DepartmentID `json:"department_id"`
	AcademicPeriod      string                 `json:"academic_period"`
	TotalTeachers       int                    `json:"total_teachers"`
	TotalSubjects       int                    `json:"total_subjects"`
	Assigned            int                    `json:"assigned"`
	Unassigned          int                    `json:"unassigned"`
	Workload            []TeacherWorkload      `json:"workload"`
	AverageWorkload     float64                `json:"average_workload"` // 2 dp
	MaxLoadPerTeacher   int                    `json:"max_load_per_teacher"`
	MaxCapacity         int                    `json:"max_capacity"`
	SubjectsPerSemester map[int]int            `json:"subjects_per_semester"`
}

// Stats computes workload statistics over a snapshot.
// Strategy is ignored; MaxLoadPerTeacher only feeds capacity figures.
func Stats(req Request, snap Snapshot) (*AssignmentStats, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}

	sc := buildScope(req, snap)
	st := &AssignmentStats{
		DepartmentID:        req.DepartmentID,
		AcademicPeriod:      req.AcademicPeriod,
		TotalTeachers:       len(sc.teachers),
		TotalSubjects:       len(sc.subjects),
		Assigned:            len(sc.assigned),
		Unassigned:          len(sc.subjects) - len(sc.assigned),
		Workload:            make([]TeacherWorkload, 0, len(sc.teachers)),
		MaxLoadPerTeacher:   req.MaxLoadPerTeacher,
		SubjectsPerSemester: make(map[int]int, len(sc.semesters)),
	}

	total := 0
	for _, t := range sc.teachers {
		l := sc.load[t.ID]
		total += l
		st.Workload = append(st.Workload, TeacherWorkload{
			TeacherID: t.ID,
			Name:      t.Name,
			Load:      l,
			Remaining: remaining(req.MaxLoadPerTeacher, l),
		})
	}
	sort.SliceStable(st.Workload, func(i, j int) bool {
		return st.Workload[i].Load > st.Workload[j].Load
	})

	if len(sc.teachers) > 0 {
		st.AverageWorkload = math.Round(float64(total)/float64(len(sc.teachers))*100) / 100
	}
	if req.MaxLoadPerTeacher > 0 {
		st.MaxCapacity = req.MaxLoadPerTeacher * len(sc.teachers)
	}
	for _, sem := range sc.semesters {
		st.SubjectsPerSemester[sem] = len(sc.bySemester[sem])
	}

	return st, nil
}

func remaining(max, load int) int {
	if max <= 0 || load >= max {
		return 0
	}
	return max - load
}

// ResetSet returns the active assignments a reset of the department's
// target semesters would deactivate for the period
func ResetSet(req Request, snap Snapshot) ([]contracts.Assignment, error) {
	if err := req.validateScope(); err != nil {
		return nil, err
	}
	sc := buildScope(req, snap)
	out := make([]contracts.Assignment, len(sc.existing))
	copy(out, sc.existing)
	return out, nil
}
