package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// AllocationService is implemented by *allocation.Service
type AllocationService interface {
	Run(ctx context.Context, req allocation.Request, dryRun bool) (*allocation.RunOutcome, error)
	Reset(ctx context.Context, req allocation.Request) (*allocation.ResetOutcome, error)
	Stats(ctx context.Context, req allocation.Request) (*allocation.AssignmentStats, error)
}

// DefaultsFunc returns the configured request for a department
type DefaultsFunc func(dept contracts.DepartmentID) allocation.Request

// AllocationHandler handles allocation endpoints
// ⭐ SSOT: 배정 API 핸들러는 이 구조체에서만
type AllocationHandler struct {
	service  AllocationService
	defaults DefaultsFunc
	logger   *logger.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(service AllocationService, defaults DefaultsFunc, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{
		service:  service,
		defaults: defaults,
		logger:   log,
	}
}

// AllocateRequest represents an allocation request. Omitted fields fall
// back to the configured policy.
type AllocateRequest struct {
	DepartmentID    int64  `json:"department_id" validate:"required,gt=0"`
	AcademicPeriod  string `json:"academic_period" validate:"omitempty,max=32"`
	TargetSemesters []int  `json:"target_semesters" validate:"omitempty,unique,dive,min=1,max=12"`
	MaxLoad         int    `json:"max_load" validate:"omitempty,gt=0,lte=50"`
	Strategy        string `json:"strategy" validate:"omitempty,oneof=shuffle round_robin"`
	DryRun          bool   `json:"dry_run"`
}

func (h *AllocationHandler) build(in AllocateRequest) allocation.Request {
	req := h.defaults(contracts.DepartmentID(in.DepartmentID))
	if in.AcademicPeriod != "" {
		req.AcademicPeriod = in.AcademicPeriod
	}
	if len(in.TargetSemesters) > 0 {
		req.TargetSemesters = in.TargetSemesters
	}
	if in.MaxLoad > 0 {
		req.MaxLoadPerTeacher = in.MaxLoad
	}
	if in.Strategy != "" {
		req.Strategy = allocation.Strategy(in.Strategy)
	}
	return req
}

// Allocate runs an allocation
// POST /api/allocations
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var in AllocateRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	out, err := h.service.Run(r.Context(), h.build(in), in.DryRun)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).WithField("department", in.DepartmentID).Error("Allocation failed")
		respondServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !out.Result.Success {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, out)
}

// ResetRequest represents a reset request
type ResetRequest struct {
	DepartmentID    int64  `json:"department_id" validate:"required,gt=0"`
	AcademicPeriod  string `json:"academic_period" validate:"omitempty,max=32"`
	TargetSemesters []int  `json:"target_semesters" validate:"omitempty,unique,dive,min=1,max=12"`
}

// Reset deactivates the department's active assignments
// POST /api/allocations/reset
func (h *AllocationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var in ResetRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	req := h.build(AllocateRequest{
		DepartmentID:    in.DepartmentID,
		AcademicPeriod:  in.AcademicPeriod,
		TargetSemesters: in.TargetSemesters,
	})
	out, err := h.service.Reset(r.Context(), req)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).WithField("department", in.DepartmentID).Error("Reset failed")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

// Stats returns workload statistics
// GET /api/allocations/stats?department_id=1&academic_period=2025-2026&max_load=5&target_semesters=2,4
func (h *AllocationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	dept, err := strconv.ParseInt(q.Get("department_id"), 10, 64)
	if err != nil || dept <= 0 {
		respondError(w, http.StatusBadRequest, "department_id must be a positive integer")
		return
	}

	in := AllocateRequest{DepartmentID: dept, AcademicPeriod: q.Get("academic_period")}
	if v := q.Get("max_load"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "max_load must be a positive integer")
			return
		}
		in.MaxLoad = n
	}
	if v := q.Get("target_semesters"); v != "" {
		sems, err := parseSemesters(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "target_semesters must be distinct integers in [1, 12], comma separated")
			return
		}
		in.TargetSemesters = sems
	}

	st, err := h.service.Stats(r.Context(), h.build(in))
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Error("Failed to compute allocation stats")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, st)
}

// parseSemesters reads a comma list such as "2,4,6"
func parseSemesters(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := validate.Var(out, "unique,dive,min=1,max=12"); err != nil {
		return nil, err
	}
	return out, nil
}
