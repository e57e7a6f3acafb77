package allocation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/contracts"
)

const (
	testDept   contracts.DepartmentID = 7
	testPeriod                        = "2025-2026"
)

func teacher(id int64, name string) contracts.Teacher {
	return contracts.Teacher{ID: contracts.TeacherID(id), Name: name, DepartmentID: testDept, Active: true}
}

func subject(id int64, sem int) contracts.Subject {
	return contracts.Subject{
		ID:           contracts.SubjectID(id),
		Name:         fmt.Sprintf("S%d", id),
		DepartmentID: testDept,
		Semester:     sem,
		Credits:      4,
	}
}

func active(t, s int64, sem int) contracts.Assignment {
	return contracts.Assignment{
		TeacherID:      contracts.TeacherID(t),
		SubjectID:      contracts.SubjectID(s),
		AcademicPeriod: testPeriod,
		Semester:       sem,
		Active:         true,
	}
}

func request(max int, strategy Strategy) Request {
	return Request{
		DepartmentID:      testDept,
		AcademicPeriod:    testPeriod,
		TargetSemesters:   []int{2, 4, 6, 8},
		MaxLoadPerTeacher: max,
		Strategy:          strategy,
	}
}

func seeded(seed int64) *Allocator {
	return NewAllocator(rand.New(rand.NewSource(seed)))
}

var strategies = []Strategy{StrategyShuffle, StrategyRoundRobin}

func TestAllocate_EndToEndTwoTeachers(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B")},
		Subjects: []contracts.Subject{subject(1, 2), subject(2, 2), subject(3, 2)},
	}

	for _, st := range strategies {
		t.Run(string(st), func(t *testing.T) {
			res, err := seeded(42).Allocate(request(2, st), snap)
			require.NoError(t, err)

			assert.True(t, res.Success)
			assert.Equal(t, 3, res.TotalAssigned)
			assert.Len(t, res.NewAssignments, 3)
			assert.Empty(t, res.FailedSubjects)

			for id, load := range res.TeacherLoad {
				assert.GreaterOrEqual(t, load, 1, "teacher %d", id)
				assert.LessOrEqual(t, load, 2, "teacher %d", id)
			}
			assert.Equal(t, 3, res.TeacherLoad[1]+res.TeacherLoad[2])

			for _, a := range res.NewAssignments {
				assert.Equal(t, testPeriod, a.AcademicPeriod)
				assert.Equal(t, 2, a.Semester)
				assert.True(t, a.Active)
				assert.Zero(t, a.ID)
			}
		})
	}
}

func TestAllocate_CapacityInvariant(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		r := rand.New(rand.NewSource(seed))
		max := 1 + r.Intn(4)

		var snap Snapshot
		nTeachers := 1 + r.Intn(5)
		for i := 1; i <= nTeachers; i++ {
			snap.Teachers = append(snap.Teachers, teacher(int64(i), fmt.Sprintf("T%d", i)))
		}
		nSubjects := 1 + r.Intn(20)
		for i := 1; i <= nSubjects; i++ {
			snap.Subjects = append(snap.Subjects, subject(int64(i), 2*(1+r.Intn(4))))
		}
		// pre-existing load never above max
		for i := 1; i <= nSubjects; i += 3 {
			tid := int64(1 + r.Intn(nTeachers))
			if countFor(snap.Assignments, tid) < max {
				snap.Assignments = append(snap.Assignments, active(tid, int64(i), snap.Subjects[i-1].Semester))
			}
		}

		for _, st := range strategies {
			res, err := seeded(seed).Allocate(request(max, st), snap)
			require.NoError(t, err)
			for id, load := range res.TeacherLoad {
				assert.LessOrEqual(t, load, max, "seed %d strategy %s teacher %d", seed, st, id)
			}

			open := nSubjects - len(snap.Assignments)
			assert.Equal(t, open, len(res.NewAssignments)+len(res.FailedSubjects),
				"seed %d strategy %s", seed, st)
		}
	}
}

func countFor(as []contracts.Assignment, teacherID int64) int {
	n := 0
	for _, a := range as {
		if int64(a.TeacherID) == teacherID {
			n++
		}
	}
	return n
}

func TestAllocate_NeverReassignsActiveSubject(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B")},
		Subjects: []contracts.Subject{subject(1, 2), subject(2, 2), subject(3, 4)},
		Assignments: []contracts.Assignment{
			active(1, 1, 2),
			active(2, 3, 4),
		},
	}

	for _, st := range strategies {
		res, err := seeded(3).Allocate(request(5, st), snap)
		require.NoError(t, err)

		require.Len(t, res.NewAssignments, 1)
		assert.Equal(t, contracts.SubjectID(2), res.NewAssignments[0].SubjectID)
	}
}

func TestAllocate_InactiveOrOtherPeriodDoesNotCount(t *testing.T) {
	old := active(1, 1, 2)
	old.AcademicPeriod = "2024-2025"
	off := active(1, 2, 2)
	off.Active = false

	snap := Snapshot{
		Teachers:    []contracts.Teacher{teacher(1, "A")},
		Subjects:    []contracts.Subject{subject(1, 2), subject(2, 2)},
		Assignments: []contracts.Assignment{old, off},
	}

	res, err := seeded(1).Allocate(request(2, StrategyRoundRobin), snap)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalAssigned)
	assert.Equal(t, 2, res.TeacherLoad[1])
}

func TestAllocate_IdempotentUnderResnapshot(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B"), teacher(3, "C")},
		Subjects: []contracts.Subject{
			subject(1, 2), subject(2, 2), subject(3, 4), subject(4, 6), subject(5, 8), subject(6, 8),
		},
	}

	for _, st := range strategies {
		t.Run(string(st), func(t *testing.T) {
			a := seeded(9)
			first, err := a.Allocate(request(2, st), snap)
			require.NoError(t, err)
			require.Equal(t, 6, first.TotalAssigned)

			next := snap
			next.Assignments = append(append([]contracts.Assignment(nil), snap.Assignments...), first.NewAssignments...)

			second, err := a.Allocate(request(2, st), next)
			require.NoError(t, err)
			assert.True(t, second.Success)
			assert.Empty(t, second.NewAssignments)
			assert.Empty(t, second.FailedSubjects)
			assert.Equal(t, first.TeacherLoad, second.TeacherLoad)
		})
	}
}

func TestAllocate_RoundRobinDeterministic(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B"), teacher(3, "C")},
		Subjects: []contracts.Subject{subject(1, 2), subject(2, 2), subject(3, 2), subject(4, 4), subject(5, 4)},
	}

	first, err := seeded(1).Allocate(request(2, StrategyRoundRobin), snap)
	require.NoError(t, err)

	for seed := int64(2); seed < 10; seed++ {
		again, err := seeded(seed).Allocate(request(2, StrategyRoundRobin), snap)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAllocate_RoundRobinOrderAfterRemoval(t *testing.T) {
	// A starts at 1 of 2, so it leaves the rotation after one pick and the
	// index keeps counting over the shorter list.
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B"), teacher(3, "C")},
		Subjects: []contracts.Subject{
			subject(100, 2),
			subject(1, 2), subject(2, 2), subject(3, 2), subject(4, 2), subject(5, 2), subject(6, 2),
		},
		Assignments: []contracts.Assignment{active(1, 100, 2)},
	}

	res, err := seeded(1).Allocate(request(2, StrategyRoundRobin), snap)
	require.NoError(t, err)

	var got []contracts.TeacherID
	for _, a := range res.NewAssignments {
		got = append(got, a.TeacherID)
	}
	assert.Equal(t, []contracts.TeacherID{1, 3, 2, 3, 2}, got)

	require.Len(t, res.FailedSubjects, 1)
	assert.Equal(t, FailedSubject{ID: 6, Name: "S6", Semester: 2}, res.FailedSubjects[0])
	assert.True(t, res.Success)
	assert.Equal(t, map[contracts.TeacherID]int{1: 2, 2: 2, 3: 2}, res.TeacherLoad)
}

func TestAllocate_ShuffleSameSeedSameResult(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B"), teacher(3, "C")},
		Subjects: []contracts.Subject{subject(1, 2), subject(2, 2), subject(3, 4), subject(4, 4), subject(5, 6)},
	}

	a, err := seeded(77).Allocate(request(3, StrategyShuffle), snap)
	require.NoError(t, err)
	b, err := seeded(77).Allocate(request(3, StrategyShuffle), snap)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestAllocate_PartialWhenPoolExhausted(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A")},
		Subjects: []contracts.Subject{subject(1, 2), subject(2, 2), subject(3, 2), subject(4, 4)},
	}

	for _, st := range strategies {
		res, err := seeded(5).Allocate(request(2, st), snap)
		require.NoError(t, err)

		assert.True(t, res.Success)
		assert.Equal(t, 2, res.TotalAssigned)
		assert.Len(t, res.FailedSubjects, 2)
		assert.Equal(t, 2, res.TeacherLoad[1])
		assert.Contains(t, res.Message, "2 could not be assigned")

		// semester 2 is processed first, so semester 4 gets nothing
		assert.Equal(t, contracts.SubjectID(3), res.FailedSubjects[0].ID)
		assert.Equal(t, contracts.SubjectID(4), res.FailedSubjects[1].ID)
	}
}

func TestAllocate_AllTeachersFull(t *testing.T) {
	snap := Snapshot{
		Teachers:    []contracts.Teacher{teacher(1, "A")},
		Subjects:    []contracts.Subject{subject(1, 2), subject(2, 4)},
		Assignments: []contracts.Assignment{active(1, 1, 2)},
	}

	for _, st := range strategies {
		res, err := seeded(5).Allocate(request(1, st), snap)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.NewAssignments)
		assert.Equal(t, []FailedSubject{{ID: 2, Name: "S2", Semester: 4}}, res.FailedSubjects)
	}
}

func TestAllocate_NoTeachers(t *testing.T) {
	other := teacher(1, "A")
	other.DepartmentID = 99
	idle := teacher(2, "B")
	idle.Active = false

	snap := Snapshot{
		Teachers: []contracts.Teacher{other, idle},
		Subjects: []contracts.Subject{subject(1, 2)},
	}

	res, err := seeded(1).Allocate(request(5, StrategyShuffle), snap)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonNoTeachersAvailable, res.Reason)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, res.NewAssignments)
}

func TestAllocate_NoSubjectsInScope(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A")},
		Subjects: []contracts.Subject{subject(1, 1), subject(2, 3)}, // odd semesters only
	}

	res, err := seeded(1).Allocate(request(5, StrategyRoundRobin), snap)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonNoSubjectsInScope, res.Reason)
}

func TestAllocate_TargetSemestersConfigurable(t *testing.T) {
	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A")},
		Subjects: []contracts.Subject{subject(1, 1), subject(2, 2), subject(3, 3)},
	}

	req := request(5, StrategyRoundRobin)
	req.TargetSemesters = []int{3, 1}

	res, err := seeded(1).Allocate(req, snap)
	require.NoError(t, err)
	require.Len(t, res.NewAssignments, 2)
	// ascending semester order
	assert.Equal(t, contracts.SubjectID(1), res.NewAssignments[0].SubjectID)
	assert.Equal(t, contracts.SubjectID(3), res.NewAssignments[1].SubjectID)
}

func TestAllocate_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"zero max load", func(r *Request) { r.MaxLoadPerTeacher = 0 }},
		{"negative max load", func(r *Request) { r.MaxLoadPerTeacher = -1 }},
		{"no semesters", func(r *Request) { r.TargetSemesters = nil }},
		{"duplicate semester", func(r *Request) { r.TargetSemesters = []int{2, 2} }},
		{"invalid semester", func(r *Request) { r.TargetSemesters = []int{0} }},
		{"no period", func(r *Request) { r.AcademicPeriod = "" }},
		{"unknown strategy", func(r *Request) { r.Strategy = "genetic" }},
	}

	snap := Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A")},
		Subjects: []contracts.Subject{subject(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(5, StrategyShuffle)
			tt.mutate(&req)

			res, err := seeded(1).Allocate(req, snap)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Nil(t, res)
		})
	}
}

func TestAllocate_DoesNotMutateInputs(t *testing.T) {
	snap := Snapshot{
		Teachers:    []contracts.Teacher{teacher(2, "B"), teacher(1, "A")},
		Subjects:    []contracts.Subject{subject(3, 4), subject(1, 2), subject(2, 2)},
		Assignments: []contracts.Assignment{active(1, 3, 4)},
	}
	req := request(2, StrategyShuffle)
	req.TargetSemesters = []int{8, 4, 2}

	before := Snapshot{
		Teachers:    append([]contracts.Teacher(nil), snap.Teachers...),
		Subjects:    append([]contracts.Subject(nil), snap.Subjects...),
		Assignments: append([]contracts.Assignment(nil), snap.Assignments...),
	}

	for _, st := range strategies {
		req.Strategy = st
		_, err := seeded(1).Allocate(req, snap)
		require.NoError(t, err)
	}

	assert.Equal(t, before, snap)
	assert.Equal(t, []int{8, 4, 2}, req.TargetSemesters)
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy("round_robin")
	require.NoError(t, err)
	assert.Equal(t, StrategyRoundRobin, st)

	_, err = ParseStrategy("ant_colony")
	assert.ErrorIs(t, err, ErrConfiguration)
}
