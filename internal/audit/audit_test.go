package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/pkg/logger"
)

type memStore struct {
	runs []RunRecord
	err  error
}

func (m *memStore) SaveRun(_ context.Context, rec *RunRecord) error {
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, *rec)
	return nil
}

func TestRecorder_RecordsRunsAndResets(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, func() string { return "abc123" }, logger.Nop())

	at := time.Date(2025, 9, 1, 6, 0, 0, 0, time.UTC)
	rec.Publish(allocation.EventAllocationCompleted, allocation.RunEvent{
		RunID:          "run-1",
		DepartmentID:   3,
		AcademicPeriod: "2025-2026",
		Strategy:       allocation.StrategyRoundRobin,
		Assigned:       4,
		Failed:         1,
		At:             at,
	})
	rec.Publish(allocation.EventAllocationReset, &allocation.RunEvent{
		RunID:       "run-2",
		Deactivated: 4,
	})

	require.Len(t, store.runs, 2)

	first := store.runs[0]
	assert.Equal(t, RunAllocate, first.Kind)
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, "round_robin", first.Strategy)
	assert.Equal(t, 4, first.Assigned)
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, "abc123", first.PolicyHash)
	assert.Equal(t, at, first.RecordedAt)

	second := store.runs[1]
	assert.Equal(t, RunReset, second.Kind)
	assert.Equal(t, int64(4), second.Deactivated)
	assert.False(t, second.RecordedAt.IsZero(), "missing timestamp is filled in")
}

func TestRecorder_IgnoresOtherEvents(t *testing.T) {
	store := &memStore{}
	rec := NewRecorder(store, nil, logger.Nop())

	rec.Publish("policy.reloaded", allocation.RunEvent{RunID: "x"})
	rec.Publish(allocation.EventAllocationCompleted, map[string]int{"assigned": 1})
	rec.Publish(allocation.EventAllocationCompleted, (*allocation.RunEvent)(nil))

	assert.Empty(t, store.runs)
}

func TestRecorder_StoreFailureIsSwallowed(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	rec := NewRecorder(store, nil, logger.Nop())

	assert.NotPanics(t, func() {
		rec.Publish(allocation.EventAllocationCompleted, allocation.RunEvent{RunID: "run-1"})
	})
}

func TestRunFilter_Limit(t *testing.T) {
	tests := []struct {
		limit int
		want  uint64
	}{
		{0, 20},
		{-5, 20},
		{50, 50},
		{1000, 200},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RunFilter{Limit: tt.limit}.limit())
	}
}
