package strategyconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/risk"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// cronParser matches the scheduler (cron.WithSeconds)
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.PolicyID == "" {
		return ValidationError{"meta.policy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Allocation ===
	a := cfg.Allocation
	if a.AcademicPeriod == "" {
		return ValidationError{"allocation.academic_period", "required"}
	}
	if len(a.TargetSemesters) == 0 {
		return ValidationError{"allocation.target_semesters", "must not be empty"}
	}
	seen := make(map[int]bool, len(a.TargetSemesters))
	for i, s := range a.TargetSemesters {
		if s < 1 || s > 12 {
			return ValidationError{fmt.Sprintf("allocation.target_semesters[%d]", i), "must be in [1, 12]"}
		}
		if seen[s] {
			return ValidationError{fmt.Sprintf("allocation.target_semesters[%d]", i), "duplicate semester"}
		}
		seen[s] = true
	}
	if a.MaxLoadPerTeacher <= 0 {
		return ValidationError{"allocation.max_load_per_teacher", "must be > 0"}
	}
	if _, err := allocation.ParseStrategy(a.Strategy); err != nil {
		return ValidationError{"allocation.strategy", "must be shuffle or round_robin"}
	}
	for i, d := range a.Departments {
		if d <= 0 {
			return ValidationError{fmt.Sprintf("allocation.departments[%d]", i), "must be > 0"}
		}
	}

	// === Classification ===
	c := cfg.Classification
	if _, err := risk.ParseRiskVariant(c.RiskVariant); err != nil {
		return ValidationError{"classification.risk_variant", "must be four_bucket or five_bucket"}
	}
	if _, err := risk.ParsePenaltyTable(c.PenaltyTable); err != nil {
		return ValidationError{"classification.penalty_table", "must be standard or strict"}
	}
	scheme, err := cfg.scheme()
	if err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return ValidationError{"classification.mark_scheme", "must be seventy_ten, twenty_five or custom"}
	}
	if err := scheme.Check(); err != nil {
		return ValidationError{"classification.custom_scheme", "internal bounds must be > 0, seminar/assessment >= 0"}
	}

	// === Schedule ===
	if cfg.Schedule.Allocation != "" {
		if _, err := cronParser.Parse(cfg.Schedule.Allocation); err != nil {
			return ValidationError{"schedule.allocation", err.Error()}
		}
		if len(a.Departments) == 0 {
			return ValidationError{"allocation.departments", "required when schedule.allocation is set"}
		}
	}
	if cfg.Schedule.RiskRefresh != "" {
		if _, err := cronParser.Parse(cfg.Schedule.RiskRefresh); err != nil {
			return ValidationError{"schedule.risk_refresh", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 교원당 과목 수 과다
	if cfg.Allocation.MaxLoadPerTeacher > 8 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_MAX_LOAD",
			Message: fmt.Sprintf("max_load_per_teacher %d: above 8 subjects per teacher", cfg.Allocation.MaxLoadPerTeacher),
		})
	}

	// 고정 시드: 매 실행 동일한 셔플
	if cfg.Allocation.Strategy == string(allocation.StrategyShuffle) && cfg.Allocation.Seed != 0 {
		warnings = append(warnings, Warning{
			Code:    "FIXED_SEED",
			Message: "shuffle with a fixed seed repeats the same draw on every run",
		})
	}

	if cfg.Classification.PenaltyTable == string(risk.PenaltyTableStrict) {
		warnings = append(warnings, Warning{
			Code:    "STRICT_PENALTY",
			Message: "strict penalty table fines attendance below 90%",
		})
	}

	return warnings
}
