package audit

import (
	"time"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/contracts"
)

// RunKind distinguishes allocation runs from resets
type RunKind string

const (
	RunAllocate RunKind = "allocate"
	RunReset    RunKind = "reset"
)

// RunRecord is one persisted allocation run or reset. Dry runs are never recorded.
type RunRecord struct {
	ID             int64                  `json:"id"`
	RunID          string                 `json:"run_id"`
	Kind           RunKind                `json:"kind"`
	DepartmentID   contracts.DepartmentID `json:"department_id"`
	AcademicPeriod string                 `json:"academic_period"`
	Strategy       string                 `json:"strategy,omitempty"`
	Assigned       int                    `json:"assigned"`
	Failed         int                    `json:"failed"`
	Conflicts      int                    `json:"conflicts"`
	Deactivated    int64                  `json:"deactivated"`
	PolicyHash     string                 `json:"policy_hash,omitempty"`
	RecordedAt     time.Time              `json:"recorded_at"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	DepartmentID   contracts.DepartmentID
	AcademicPeriod string
	Limit          int // default 20, max 200
}

func (f RunFilter) limit() uint64 {
	switch {
	case f.Limit <= 0:
		return 20
	case f.Limit > 200:
		return 200
	default:
		return uint64(f.Limit)
	}
}

// recordFromEvent maps an allocation event onto a record.
// Unknown event types and payloads report false.
func recordFromEvent(eventType string, payload interface{}) (*RunRecord, bool) {
	var kind RunKind
	switch eventType {
	case allocation.EventAllocationCompleted:
		kind = RunAllocate
	case allocation.EventAllocationReset:
		kind = RunReset
	default:
		return nil, false
	}

	var ev allocation.RunEvent
	switch p := payload.(type) {
	case allocation.RunEvent:
		ev = p
	case *allocation.RunEvent:
		if p == nil {
			return nil, false
		}
		ev = *p
	default:
		return nil, false
	}

	return &RunRecord{
		RunID:          ev.RunID,
		Kind:           kind,
		DepartmentID:   ev.DepartmentID,
		AcademicPeriod: ev.AcademicPeriod,
		Strategy:       string(ev.Strategy),
		Assigned:       ev.Assigned,
		Failed:         ev.Failed,
		Conflicts:      ev.Conflicts,
		Deactivated:    ev.Deactivated,
		RecordedAt:     ev.At,
	}, true
}
