package handlers

import (
	"net/http"

	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/internal/risk"
)

// PolicyFunc returns the classification policy currently in force
type PolicyFunc func() performance.Policy

// ClassifyHandler exposes the pure classifier
type ClassifyHandler struct {
	policy PolicyFunc
}

// NewClassifyHandler creates a new classify handler
func NewClassifyHandler(policy PolicyFunc) *ClassifyHandler {
	return &ClassifyHandler{policy: policy}
}

// ClassifyRequest represents a classify request
type ClassifyRequest struct {
	Attendance *float64 `json:"attendance" validate:"required"`
	FinalScore *float64 `json:"final_score" validate:"required"`
	Variant    string   `json:"variant" validate:"omitempty,oneof=four_bucket five_bucket"`
}

// ClassifyResponse represents a classify response
type ClassifyResponse struct {
	risk.Classification
	Variant    risk.RiskVariant `json:"variant"`
	Suggestion string           `json:"suggestion"`
}

// Classify returns grade and risk status
// POST /api/classify
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var in ClassifyRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	variant := h.policy().Variant
	if in.Variant != "" {
		variant = risk.RiskVariant(in.Variant)
	}

	cls, err := risk.Classify(*in.Attendance, *in.FinalScore, variant)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ClassifyResponse{
		Classification: cls,
		Variant:        variant,
		Suggestion:     risk.ImprovementSuggestion(*in.FinalScore),
	})
}

// PenaltyRequest represents a penalty request
type PenaltyRequest struct {
	Attendance *float64 `json:"attendance" validate:"required"`
	Table      string   `json:"table" validate:"omitempty,oneof=standard strict"`
}

// PenaltyResponse represents a penalty response
type PenaltyResponse struct {
	risk.PenaltyResult
	Table risk.PenaltyTable `json:"table"`
}

// Penalty returns the attendance penalty tier and amount
// POST /api/penalty
func (h *ClassifyHandler) Penalty(w http.ResponseWriter, r *http.Request) {
	var in PenaltyRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	table := h.policy().Table
	if in.Table != "" {
		table = risk.PenaltyTable(in.Table)
	}

	res, err := risk.Penalty(*in.Attendance, table)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PenaltyResponse{PenaltyResult: res, Table: table})
}

// FinalScoreRequest represents a final-score request. Without
// max_possible_raw the configured mark scheme's maximum is used.
type FinalScoreRequest struct {
	TotalRaw       *float64 `json:"total_raw" validate:"required"`
	MaxPossibleRaw float64  `json:"max_possible_raw"`
}

// FinalScoreResponse represents a final-score response
type FinalScoreResponse struct {
	FinalScore     float64 `json:"final_score"`
	MaxPossibleRaw float64 `json:"max_possible_raw"`
	Grade          string  `json:"grade"`
}

// FinalScore normalises a raw total onto the 0..20 scale
// POST /api/final-score
func (h *ClassifyHandler) FinalScore(w http.ResponseWriter, r *http.Request) {
	var in FinalScoreRequest
	if !decodeAndValidate(w, r, &in) {
		return
	}

	max := in.MaxPossibleRaw
	if max == 0 {
		max = h.policy().Scheme.MaxTotal()
	}

	final, err := risk.FinalScore(*in.TotalRaw, max)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FinalScoreResponse{
		FinalScore:     final,
		MaxPossibleRaw: max,
		Grade:          string(risk.Grade(final)),
	})
}
