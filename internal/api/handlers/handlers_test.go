package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/internal/risk"
	"github.com/wonny/acadport/backend/pkg/logger"
	"github.com/wonny/acadport/backend/pkg/redis"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeAllocationService struct {
	lastReq    allocation.Request
	lastDryRun bool
	outcome    *allocation.RunOutcome
	err        error
}

func (f *fakeAllocationService) Run(_ context.Context, req allocation.Request, dryRun bool) (*allocation.RunOutcome, error) {
	f.lastReq, f.lastDryRun = req, dryRun
	return f.outcome, f.err
}

func (f *fakeAllocationService) Reset(_ context.Context, req allocation.Request) (*allocation.ResetOutcome, error) {
	f.lastReq = req
	return &allocation.ResetOutcome{RunID: "r1", Deactivated: 4}, f.err
}

func (f *fakeAllocationService) Stats(_ context.Context, req allocation.Request) (*allocation.AssignmentStats, error) {
	f.lastReq = req
	return &allocation.AssignmentStats{}, f.err
}

func defaults(dept contracts.DepartmentID) allocation.Request {
	return allocation.Request{
		DepartmentID:      dept,
		AcademicPeriod:    "2025-2026",
		TargetSemesters:   []int{2, 4, 6, 8},
		MaxLoadPerTeacher: 5,
		Strategy:          allocation.StrategyShuffle,
	}
}

func defaultPolicy() performance.Policy {
	return performance.Policy{
		Scheme:  performance.SchemeSeventyTen,
		Variant: risk.VariantFourBucket,
		Table:   risk.PenaltyTableStandard,
	}
}

type fakePerformanceService struct {
	lastPeriod  string
	lastSubject contracts.SubjectID
	lastStudent contracts.StudentID
	err         error
}

func (f *fakePerformanceService) RecordMarks(_ context.Context, in performance.MarksInput) (*contracts.PerformanceRecord, error) {
	f.lastPeriod = in.AcademicPeriod
	if f.err != nil {
		return nil, f.err
	}
	return performance.DerivePerformance(in, defaultPolicy())
}

func (f *fakePerformanceService) RecordAttendance(_ context.Context, in performance.AttendanceInput) (*contracts.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return performance.DeriveAttendance(in, risk.PenaltyTableStandard)
}

func (f *fakePerformanceService) RefreshRisk(_ context.Context, period string) (*performance.RefreshSummary, error) {
	f.lastPeriod = period
	return &performance.RefreshSummary{Scanned: 3, Updated: 1}, f.err
}

func (f *fakePerformanceService) Summary(_ context.Context, subjectID contracts.SubjectID, period string) (*performance.SubjectSummary, error) {
	f.lastSubject, f.lastPeriod = subjectID, period
	return &performance.SubjectSummary{SubjectID: subjectID, AcademicPeriod: period}, f.err
}

func (f *fakePerformanceService) StudentOverview(_ context.Context, studentID contracts.StudentID, period string) (*performance.StudentOverview, error) {
	f.lastStudent, f.lastPeriod = studentID, period
	if f.err != nil {
		return nil, f.err
	}
	return &performance.StudentOverview{StudentID: studentID, AcademicPeriod: period, Overall: contracts.RiskSafe}, nil
}

func post(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// ============================================================================
// Allocation
// ============================================================================

func TestAllocate_MergesDefaults(t *testing.T) {
	svc := &fakeAllocationService{outcome: &allocation.RunOutcome{
		RunID:  "run-1",
		Result: &allocation.Result{Success: true, TotalAssigned: 2},
	}}
	h := NewAllocationHandler(svc, defaults, logger.Nop())

	rec := post(t, h.Allocate, map[string]interface{}{
		"department_id": 7,
		"strategy":      "round_robin",
		"dry_run":       true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.DepartmentID(7), svc.lastReq.DepartmentID)
	assert.Equal(t, "2025-2026", svc.lastReq.AcademicPeriod)
	assert.Equal(t, []int{2, 4, 6, 8}, svc.lastReq.TargetSemesters)
	assert.Equal(t, 5, svc.lastReq.MaxLoadPerTeacher)
	assert.Equal(t, allocation.StrategyRoundRobin, svc.lastReq.Strategy)
	assert.True(t, svc.lastDryRun)

	var out allocation.RunOutcome
	decodeBody(t, rec, &out)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 2, out.Result.TotalAssigned)
}

func TestAllocate_Status(t *testing.T) {
	tests := []struct {
		name    string
		outcome *allocation.RunOutcome
		err     error
		body    interface{}
		want    int
	}{
		{
			name:    "failed allocation",
			outcome: &allocation.RunOutcome{Result: &allocation.Result{
				Success: false,
				Reason:  allocation.ReasonNoTeachersAvailable,
			}},
			body: map[string]interface{}{"department_id": 1},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "lock held",
			err:  fmt.Errorf("%w: dept:1", redis.ErrLockHeld),
			body: map[string]interface{}{"department_id": 1},
			want: http.StatusConflict,
		},
		{
			name: "configuration error",
			err:  fmt.Errorf("%w: max load must be positive", allocation.ErrConfiguration),
			body: map[string]interface{}{"department_id": 1},
			want: http.StatusBadRequest,
		},
		{
			name: "storage failure",
			err:  fmt.Errorf("connection refused"),
			body: map[string]interface{}{"department_id": 1},
			want: http.StatusInternalServerError,
		},
		{
			name: "unknown field",
			body: `{"department_id": 1, "teachers": []}`,
			want: http.StatusBadRequest,
		},
		{
			name: "malformed json",
			body: `{"department_id":`,
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAllocationService{outcome: tt.outcome, err: tt.err}
			h := NewAllocationHandler(svc, defaults, logger.Nop())

			rec := post(t, h.Allocate, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAllocate_ValidationFields(t *testing.T) {
	h := NewAllocationHandler(&fakeAllocationService{}, defaults, logger.Nop())

	rec := post(t, h.Allocate, map[string]interface{}{
		"department_id":    0,
		"target_semesters": []int{2, 2},
		"strategy":         "random",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var out ErrorResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, "Validation failed", out.Error)
	assert.Contains(t, out.Fields, "department_id")
	assert.Contains(t, out.Fields, "target_semesters")
	assert.Contains(t, out.Fields, "strategy")
}

func TestReset(t *testing.T) {
	svc := &fakeAllocationService{}
	h := NewAllocationHandler(svc, defaults, logger.Nop())

	rec := post(t, h.Reset, map[string]interface{}{"department_id": 3, "target_semesters": []int{4}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.DepartmentID(3), svc.lastReq.DepartmentID)
	assert.Equal(t, []int{4}, svc.lastReq.TargetSemesters)

	var out allocation.ResetOutcome
	decodeBody(t, rec, &out)
	assert.Equal(t, int64(4), out.Deactivated)
}

func TestStats_QueryParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"valid", "?department_id=2&max_load=3&academic_period=2026-2027", http.StatusOK},
		{"missing department", "", http.StatusBadRequest},
		{"negative department", "?department_id=-1", http.StatusBadRequest},
		{"bad max load", "?department_id=2&max_load=zero", http.StatusBadRequest},
		{"semesters", "?department_id=2&target_semesters=2,4", http.StatusOK},
		{"semester out of range", "?department_id=2&target_semesters=2,13", http.StatusBadRequest},
		{"semester not a number", "?department_id=2&target_semesters=2,x", http.StatusBadRequest},
		{"duplicate semester", "?department_id=2&target_semesters=4,4", http.StatusBadRequest},
		{"empty semester", "?department_id=2&target_semesters=2,", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAllocationService{}
			h := NewAllocationHandler(svc, defaults, logger.Nop())

			rec := httptest.NewRecorder()
			h.Stats(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	svc := &fakeAllocationService{}
	h := NewAllocationHandler(svc, defaults, logger.Nop())
	h.Stats(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?department_id=2&max_load=3&academic_period=2026-2027", nil))
	assert.Equal(t, 3, svc.lastReq.MaxLoadPerTeacher)
	assert.Equal(t, "2026-2027", svc.lastReq.AcademicPeriod)

	h.Stats(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?department_id=2&target_semesters=3,%205", nil))
	assert.Equal(t, []int{3, 5}, svc.lastReq.TargetSemesters)
}

// ============================================================================
// Classification
// ============================================================================

func TestClassify(t *testing.T) {
	h := NewClassifyHandler(defaultPolicy)

	tests := []struct {
		name      string
		body      interface{}
		wantCode  int
		wantGrade contracts.Grade
		wantRisk  contracts.RiskStatus
	}{
		{
			name:      "best student",
			body:      map[string]interface{}{"attendance": 92, "final_score": 18.5},
			wantCode:  http.StatusOK,
			wantGrade: contracts.GradeAPlus,
			wantRisk:  contracts.RiskBest,
		},
		{
			name:      "low attendance overrides marks",
			body:      map[string]interface{}{"attendance": 65, "final_score": 19},
			wantCode:  http.StatusOK,
			wantGrade: contracts.GradeAPlus,
			wantRisk:  contracts.RiskCritical,
		},
		{
			name:      "five bucket variant",
			body:      map[string]interface{}{"attendance": 80, "final_score": 9, "variant": "five_bucket"},
			wantCode:  http.StatusOK,
			wantGrade: contracts.GradeD,
			wantRisk:  contracts.RiskHigh,
		},
		{
			name:      "zero values are present",
			body:      map[string]interface{}{"attendance": 0, "final_score": 0},
			wantCode:  http.StatusOK,
			wantGrade: contracts.GradeD,
			wantRisk:  contracts.RiskCritical,
		},
		{
			name:     "missing final score",
			body:     map[string]interface{}{"attendance": 80},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "attendance out of domain",
			body:     map[string]interface{}{"attendance": 120, "final_score": 10},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "unknown variant",
			body:     map[string]interface{}{"attendance": 80, "final_score": 10, "variant": "three_bucket"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.Classify, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var out ClassifyResponse
			decodeBody(t, rec, &out)
			assert.Equal(t, tt.wantGrade, out.Grade)
			assert.Equal(t, tt.wantRisk, out.Risk)
			assert.NotEmpty(t, out.Suggestion)
		})
	}
}

func TestPenalty(t *testing.T) {
	h := NewClassifyHandler(defaultPolicy)

	tests := []struct {
		name       string
		body       interface{}
		wantTier   contracts.PenaltyTier
		wantAmount int
	}{
		{"standard full attendance", map[string]interface{}{"attendance": 80}, contracts.PenaltyNone, 0},
		{"standard boundary", map[string]interface{}{"attendance": 75}, contracts.PenaltyNone, 0},
		{"standard low", map[string]interface{}{"attendance": 72}, contracts.PenaltyLow, 200},
		{"strict table", map[string]interface{}{"attendance": 85, "table": "strict"}, contracts.PenaltyLow, 200},
		{"standard high", map[string]interface{}{"attendance": 40}, contracts.PenaltyHigh, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h.Penalty, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var out PenaltyResponse
			decodeBody(t, rec, &out)
			assert.Equal(t, tt.wantTier, out.Tier)
			assert.Equal(t, tt.wantAmount, out.Amount)
		})
	}
}

func TestFinalScore(t *testing.T) {
	h := NewClassifyHandler(defaultPolicy)

	rec := post(t, h.FinalScore, map[string]interface{}{"total_raw": 120})
	require.Equal(t, http.StatusOK, rec.Code)
	var out FinalScoreResponse
	decodeBody(t, rec, &out)
	assert.Equal(t, 160.0, out.MaxPossibleRaw)
	assert.Equal(t, 15.0, out.FinalScore)
	assert.Equal(t, "A", out.Grade)

	rec = post(t, h.FinalScore, map[string]interface{}{"total_raw": 30, "max_possible_raw": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &out)
	assert.Equal(t, 12.0, out.FinalScore)

	rec = post(t, h.FinalScore, map[string]interface{}{"total_raw": 200})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, h.FinalScore, map[string]interface{}{"total_raw": 10, "max_possible_raw": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// Performance
// ============================================================================

func TestRecordMarks(t *testing.T) {
	svc := &fakePerformanceService{}
	h := NewPerformanceHandler(svc, func() string { return "2025-2026" }, logger.Nop())

	rec := post(t, h.RecordMarks, map[string]interface{}{
		"student_id":        11,
		"subject_id":        4,
		"semester":          2,
		"internal1":         60,
		"internal2":         60,
		"seminar":           8,
		"assessment":        8,
		"attended_sessions": 45,
		"total_sessions":    50,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2025-2026", svc.lastPeriod)

	var out contracts.PerformanceRecord
	decodeBody(t, rec, &out)
	assert.Equal(t, 136.0, out.Total)
	assert.Equal(t, 17.0, out.FinalScore)
	assert.Equal(t, 90.0, out.Attendance)
}

func TestRecordMarks_Rejected(t *testing.T) {
	svc := &fakePerformanceService{}
	h := NewPerformanceHandler(svc, func() string { return "2025-2026" }, logger.Nop())

	// internal1 above the 70 bound
	rec := post(t, h.RecordMarks, map[string]interface{}{
		"student_id": 11, "subject_id": 4, "semester": 2,
		"internal1": 90, "attended_sessions": 10, "total_sessions": 10,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, h.RecordMarks, map[string]interface{}{
		"student_id": 11, "subject_id": 4, "semester": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordAttendance(t *testing.T) {
	h := NewPerformanceHandler(&fakePerformanceService{}, func() string { return "2025-2026" }, logger.Nop())

	rec := post(t, h.RecordAttendance, map[string]interface{}{
		"student_id": 1, "subject_id": 2, "month": 3, "year": 2026,
		"total_sessions": 20, "attended": 13,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out contracts.AttendanceRecord
	decodeBody(t, rec, &out)
	assert.Equal(t, 65.0, out.Percent)
	assert.Equal(t, contracts.PenaltyMedium, out.PenaltyTier)
	assert.Equal(t, 500, out.PenaltyAmount)

	rec = post(t, h.RecordAttendance, map[string]interface{}{
		"student_id": 1, "subject_id": 2, "month": 3, "year": 2026,
		"total_sessions": 20, "attended": 21,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAndSummary(t *testing.T) {
	svc := &fakePerformanceService{}
	h := NewPerformanceHandler(svc, func() string { return "2025-2026" }, logger.Nop())

	rec := httptest.NewRecorder()
	h.Refresh(rec, httptest.NewRequest(http.MethodPost, "/?academic_period=2024-2025", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-2025", svc.lastPeriod)

	r := mux.NewRouter()
	r.HandleFunc("/subjects/{id}/summary", h.Summary)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subjects/9/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.SubjectID(9), svc.lastSubject)
	assert.Equal(t, "2025-2026", svc.lastPeriod)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subjects/abc/summary", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentOverview(t *testing.T) {
	svc := &fakePerformanceService{}
	h := NewPerformanceHandler(svc, func() string { return "2025-2026" }, logger.Nop())

	r := mux.NewRouter()
	r.HandleFunc("/students/{id}/overview", h.StudentOverview)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/7/overview?academic_period=2024-2025", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.StudentID(7), svc.lastStudent)
	assert.Equal(t, "2024-2025", svc.lastPeriod)

	var ov performance.StudentOverview
	decodeBody(t, rec, &ov)
	assert.Equal(t, contracts.RiskSafe, ov.Overall)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/0/overview", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = fmt.Errorf("%w: student 8", performance.ErrNoRecords)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students/8/overview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "2025-2026", svc.lastPeriod)
}
