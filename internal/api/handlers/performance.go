package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// PerformanceService is implemented by *performance.Service
type PerformanceService interface {
	RecordMarks(ctx context.Context, in performance.MarksInput) (*contracts.PerformanceRecord, error)
	RecordAttendance(ctx context.Context, in performance.AttendanceInput) (*contracts.AttendanceRecord, error)
	RefreshRisk(ctx context.Context, period string) (*performance.RefreshSummary, error)
	Summary(ctx context.Context, subjectID contracts.SubjectID, period string) (*performance.SubjectSummary, error)
	StudentOverview(ctx context.Context, studentID contracts.StudentID, period string) (*performance.StudentOverview, error)
}

// PerformanceHandler handles marks and attendance entry
type PerformanceHandler struct {
	service PerformanceService
	period  func() string
	logger  *logger.Logger
}

// NewPerformanceHandler creates a new performance handler.
// period supplies the academic period when a request omits it.
func NewPerformanceHandler(service PerformanceService, period func() string, log *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{service: service, period: period, logger: log}
}

// MarksRequest represents a marks entry
type MarksRequest struct {
	StudentID        int64   `json:"student_id" validate:"required,gt=0"`
	SubjectID        int64   `json:"subject_id" validate:"required,gt=0"`
	AcademicPeriod   string  `json:"academic_period" validate:"omitempty,max=32"`
	Semester         int     `json:"semester" validate:"required,min=1,max=12"`
	Internal1        float64 `json:"internal1"`
	Internal2        float64 `json:"internal2"`
	Seminar          float64 `json:"seminar"`
	Assessment       float64 `json:"assessment"`
	AttendedSessions int     `json:"attended_sessions" validate:"gte=0"`
	TotalSessions    int     `json:"total_sessions" validate:"required,gt=0"`
}

// RecordMarks validates, classifies and stores marks
// POST /api/performance/marks
func (h *PerformanceHandler) RecordMarks(w http.ResponseWriter, r *http.Request) {
	var in MarksRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}
	if in.AcademicPeriod == "" {
		in.AcademicPeriod = h.period()
	}

	rec, err := h.service.RecordMarks(r.Context(), performance.MarksInput{
		StudentID:      contracts.StudentID(in.StudentID),
		SubjectID:      contracts.SubjectID(in.SubjectID),
		AcademicPeriod: in.AcademicPeriod,
		Semester:       in.Semester,
		Marks: performance.Marks{
			Internal1:  in.Internal1,
			Internal2:  in.Internal2,
			Seminar:    in.Seminar,
			Assessment: in.Assessment,
		},
		AttendedSessions: in.AttendedSessions,
		TotalSessions:    in.TotalSessions,
	})
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Warn("Marks entry rejected")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// AttendanceRequest represents a monthly attendance entry
type AttendanceRequest struct {
	StudentID     int64 `json:"student_id" validate:"required,gt=0"`
	SubjectID     int64 `json:"subject_id" validate:"required,gt=0"`
	Month         int   `json:"month" validate:"required,min=1,max=12"`
	Year          int   `json:"year" validate:"required,min=2000,max=2100"`
	TotalSessions int   `json:"total_sessions" validate:"required,gt=0"`
	Attended      int   `json:"attended" validate:"gte=0,ltefield=TotalSessions"`
}

// RecordAttendance stores a monthly attendance record with its penalty
// POST /api/performance/attendance
func (h *PerformanceHandler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var in AttendanceRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	rec, err := h.service.RecordAttendance(r.Context(), performance.AttendanceInput{
		StudentID:     contracts.StudentID(in.StudentID),
		SubjectID:     contracts.SubjectID(in.SubjectID),
		Month:         in.Month,
		Year:          in.Year,
		TotalSessions: in.TotalSessions,
		Attended:      in.Attended,
	})
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Warn("Attendance entry rejected")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// Refresh re-derives risk labels for a period
// POST /api/performance/refresh?academic_period=2025-2026
func (h *PerformanceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("academic_period")
	if period == "" {
		period = h.period()
	}

	sum, err := h.service.RefreshRisk(r.Context(), period)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Error("Risk refresh failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sum)
}

// Summary returns the risk distribution of a subject
// GET /api/performance/subjects/{id}/summary?academic_period=2025-2026
func (h *PerformanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "subject id must be a positive integer")
		return
	}

	period := r.URL.Query().Get("academic_period")
	if period == "" {
		period = h.period()
	}

	sum, err := h.service.Summary(r.Context(), contracts.SubjectID(id), period)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Error("Failed to build subject summary")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sum)
}

// StudentOverview returns a student's subjects and overall risk
// GET /api/performance/students/{id}/overview?academic_period=2025-2026
func (h *PerformanceHandler) StudentOverview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "student id must be a positive integer")
		return
	}

	period := r.URL.Query().Get("academic_period")
	if period == "" {
		period = h.period()
	}

	ov, err := h.service.StudentOverview(r.Context(), contracts.StudentID(id), period)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Warn("Failed to build student overview")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ov)
}
