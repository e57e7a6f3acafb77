package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/contracts"
)

func statsSnapshot() Snapshot {
	return Snapshot{
		Teachers: []contracts.Teacher{teacher(1, "A"), teacher(2, "B"), teacher(3, "C")},
		Subjects: []contracts.Subject{
			subject(1, 2), subject(2, 2), subject(3, 4), subject(4, 6), subject(5, 1),
		},
		Assignments: []contracts.Assignment{
			active(1, 1, 2),
			active(1, 3, 4),
			active(2, 4, 6),
			active(2, 5, 1), // semester 1 is out of scope
		},
	}
}

func TestStats(t *testing.T) {
	st, err := Stats(request(5, ""), statsSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 3, st.TotalTeachers)
	assert.Equal(t, 4, st.TotalSubjects)
	assert.Equal(t, 3, st.Assigned)
	assert.Equal(t, 1, st.Unassigned)
	assert.Equal(t, 1.0, st.AverageWorkload)
	assert.Equal(t, 15, st.MaxCapacity)
	assert.Equal(t, map[int]int{2: 2, 4: 1, 6: 1, 8: 0}, st.SubjectsPerSemester)

	require.Len(t, st.Workload, 3)
	assert.Equal(t, TeacherWorkload{TeacherID: 1, Name: "A", Load: 2, Remaining: 3}, st.Workload[0])
	assert.Equal(t, TeacherWorkload{TeacherID: 2, Name: "B", Load: 1, Remaining: 4}, st.Workload[1])
	assert.Equal(t, TeacherWorkload{TeacherID: 3, Name: "C", Load: 0, Remaining: 5}, st.Workload[2])
}

func TestStats_AverageRounding(t *testing.T) {
	snap := statsSnapshot()
	snap.Assignments = snap.Assignments[:3]
	snap.Teachers = append(snap.Teachers, teacher(4, "D"), teacher(5, "E"), teacher(6, "F"))

	st, err := Stats(request(5, ""), snap)
	require.NoError(t, err)
	assert.Equal(t, 0.5, st.AverageWorkload)

	snap.Teachers = snap.Teachers[:3]
	snap.Assignments = snap.Assignments[:2]
	st, err = Stats(request(5, ""), snap)
	require.NoError(t, err)
	assert.Equal(t, 0.67, st.AverageWorkload)
}

func TestStats_Invalid(t *testing.T) {
	req := request(5, "")
	req.TargetSemesters = nil
	_, err := Stats(req, statsSnapshot())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResetSet(t *testing.T) {
	got, err := ResetSet(request(0, ""), statsSnapshot())
	require.NoError(t, err)

	var ids []contracts.SubjectID
	for _, a := range got {
		ids = append(ids, a.SubjectID)
		assert.True(t, a.Active)
	}
	assert.ElementsMatch(t, []contracts.SubjectID{1, 3, 4}, ids)
}

func TestResetSet_ThenAllocateRefills(t *testing.T) {
	snap := statsSnapshot()
	reset, err := ResetSet(request(0, ""), snap)
	require.NoError(t, err)

	deactivated := make(map[contracts.SubjectID]bool)
	for _, a := range reset {
		deactivated[a.SubjectID] = true
	}
	var kept []contracts.Assignment
	for _, a := range snap.Assignments {
		if deactivated[a.SubjectID] {
			a.Active = false
		}
		kept = append(kept, a)
	}
	snap.Assignments = kept

	res, err := seeded(1).Allocate(request(2, StrategyRoundRobin), snap)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalAssigned)
	assert.Empty(t, res.FailedSubjects)
}
