package strategyconfig

import (
	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/performance"
	"github.com/wonny/acadport/backend/internal/risk"
)

// Config는 배정/분류 정책 파일 전체
type Config struct {
	Meta           Meta           `yaml:"meta" json:"meta"`
	Allocation     Allocation     `yaml:"allocation" json:"allocation"`
	Classification Classification `yaml:"classification" json:"classification"`
	Schedule       Schedule       `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	PolicyID string `yaml:"policy_id" json:"policy_id"`
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Allocation 교원-과목 배정 정책
type Allocation struct {
	AcademicPeriod    string  `yaml:"academic_period" json:"academic_period"`
	TargetSemesters   []int   `yaml:"target_semesters" json:"target_semesters"`
	MaxLoadPerTeacher int     `yaml:"max_load_per_teacher" json:"max_load_per_teacher"`
	Strategy          string  `yaml:"strategy" json:"strategy"` // shuffle, round_robin
	Seed              int64   `yaml:"seed" json:"seed"`         // 0 = clock
	Departments       []int64 `yaml:"departments" json:"departments"`
}

// Classification 위험도/패널티 정책
type Classification struct {
	RiskVariant  string      `yaml:"risk_variant" json:"risk_variant"`   // four_bucket, five_bucket
	PenaltyTable string      `yaml:"penalty_table" json:"penalty_table"` // standard, strict
	MarkScheme   string      `yaml:"mark_scheme" json:"mark_scheme"`     // seventy_ten, twenty_five, custom
	CustomScheme *MarkBounds `yaml:"custom_scheme,omitempty" json:"custom_scheme,omitempty"`
}

// MarkBounds 사용자 정의 배점 (mark_scheme: custom)
type MarkBounds struct {
	Internal1  float64 `yaml:"internal1" json:"internal1"`
	Internal2  float64 `yaml:"internal2" json:"internal2"`
	Seminar    float64 `yaml:"seminar" json:"seminar"`
	Assessment float64 `yaml:"assessment" json:"assessment"`
}

// Schedule cron specs (seconds field first)
type Schedule struct {
	Allocation  string `yaml:"allocation" json:"allocation"`
	RiskRefresh string `yaml:"risk_refresh" json:"risk_refresh"`
}

// Request builds the allocation request for one department
func (c *Config) Request(dept contracts.DepartmentID) allocation.Request {
	return allocation.Request{
		DepartmentID:      dept,
		AcademicPeriod:    c.Allocation.AcademicPeriod,
		TargetSemesters:   append([]int(nil), c.Allocation.TargetSemesters...),
		MaxLoadPerTeacher: c.Allocation.MaxLoadPerTeacher,
		Strategy:          allocation.Strategy(c.Allocation.Strategy),
	}
}

// Policy builds the classification policy. Config must be validated.
func (c *Config) Policy() (performance.Policy, error) {
	scheme, err := c.scheme()
	if err != nil {
		return performance.Policy{}, err
	}
	return performance.Policy{
		Scheme:  scheme,
		Variant: risk.RiskVariant(c.Classification.RiskVariant),
		Table:   risk.PenaltyTable(c.Classification.PenaltyTable),
	}, nil
}

func (c *Config) scheme() (performance.MarkScheme, error) {
	if c.Classification.MarkScheme == "custom" {
		b := c.Classification.CustomScheme
		if b == nil {
			return performance.MarkScheme{}, ValidationError{"classification.custom_scheme", "required for mark_scheme custom"}
		}
		return performance.MarkScheme{
			Name:          "custom",
			Internal1Max:  b.Internal1,
			Internal2Max:  b.Internal2,
			SeminarMax:    b.Seminar,
			AssessmentMax: b.Assessment,
		}, nil
	}
	return performance.ParseMarkScheme(c.Classification.MarkScheme)
}
