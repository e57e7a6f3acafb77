package allocation

import (
	"github.com/wonny/acadport/backend/internal/contracts"
)

// scope is the part of a snapshot a run is allowed to see
type scope struct {
	teachers   []contracts.Teacher                       // active, in department, input order
	bySemester map[int][]contracts.Subject               // in-scope subjects, input order
	subjects   map[contracts.SubjectID]contracts.Subject // in-scope subjects by id
	existing   []contracts.Assignment                    // active, period, in-scope subjects
	assigned   map[contracts.SubjectID]bool              // subjects holding an active assignment
	load       map[contracts.TeacherID]int               // pre-existing load of eligible teachers
	semesters  []int                                     // ascending
}

func buildScope(req Request, snap Snapshot) scope {
	sc := scope{
		bySemester: make(map[int][]contracts.Subject),
		subjects:   make(map[contracts.SubjectID]contracts.Subject),
		assigned:   make(map[contracts.SubjectID]bool),
		load:       make(map[contracts.TeacherID]int),
		semesters:  req.semesters(),
	}

	for _, t := range snap.Teachers {
		if !t.Active || t.DepartmentID != req.DepartmentID {
			continue
		}
		if _, dup := sc.load[t.ID]; dup {
			continue
		}
		sc.teachers = append(sc.teachers, t)
		sc.load[t.ID] = 0
	}

	target := make(map[int]bool, len(sc.semesters))
	for _, s := range sc.semesters {
		target[s] = true
	}
	for _, s := range snap.Subjects {
		if s.DepartmentID != req.DepartmentID || !target[s.Semester] {
			continue
		}
		if _, dup := sc.subjects[s.ID]; dup {
			continue
		}
		sc.subjects[s.ID] = s
		sc.bySemester[s.Semester] = append(sc.bySemester[s.Semester], s)
	}

	for _, a := range snap.Assignments {
		if !a.CountsFor(req.AcademicPeriod) {
			continue
		}
		if _, ok := sc.subjects[a.SubjectID]; !ok {
			continue
		}
		sc.existing = append(sc.existing, a)
		sc.assigned[a.SubjectID] = true
		if _, eligible := sc.load[a.TeacherID]; eligible {
			sc.load[a.TeacherID]++
		}
	}

	return sc
}

// open returns the subjects of a semester lacking an active assignment
func (sc scope) open(semester int) []contracts.Subject {
	var out []contracts.Subject
	for _, s := range sc.bySemester[semester] {
		if !sc.assigned[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func (sc scope) loadCopy() map[contracts.TeacherID]int {
	out := make(map[contracts.TeacherID]int, len(sc.load))
	for k, v := range sc.load {
		out[k] = v
	}
	return out
}
