package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/acadport/backend/internal/audit"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// RunLister is implemented by *audit.Repository
type RunLister interface {
	ListRuns(ctx context.Context, f audit.RunFilter) ([]audit.RunRecord, error)
}

// AuditHandler serves the allocation run log
type AuditHandler struct {
	runs   RunLister
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(runs RunLister, log *logger.Logger) *AuditHandler {
	return &AuditHandler{runs: runs, logger: log}
}

// Runs lists recorded allocation runs, newest first
// GET /api/allocations/runs?department_id=1&academic_period=2025-2026&limit=20
func (h *AuditHandler) Runs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f audit.RunFilter

	if v := q.Get("department_id"); v != "" {
		dept, err := strconv.ParseInt(v, 10, 64)
		if err != nil || dept <= 0 {
			respondError(w, http.StatusBadRequest, "department_id must be a positive integer")
			return
		}
		f.DepartmentID = contracts.DepartmentID(dept)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}
	f.AcademicPeriod = q.Get("academic_period")

	runs, err := h.runs.ListRuns(r.Context(), f)
	if err != nil {
		logger.FromContext(r.Context(), h.logger).WithError(err).Error("Failed to list allocation runs")
		respondError(w, http.StatusInternalServerError, "Failed to list allocation runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
