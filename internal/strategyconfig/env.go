package strategyconfig

import (
	"github.com/wonny/acadport/backend/pkg/config"
)

// Default cron specs used when the policy comes from the environment
const (
	DefaultAllocationSchedule  = "0 0 6 * * MON"
	DefaultRiskRefreshSchedule = "0 30 1 * * *"
)

// FromEnv builds a policy from environment configuration. The allocation
// schedule is only set when departments are configured.
func FromEnv(cfg *config.Config) (*Config, error) {
	a := cfg.Allocation
	depts := make([]int64, 0, len(a.Departments))
	for _, d := range a.Departments {
		depts = append(depts, int64(d))
	}

	p := &Config{
		Meta: Meta{PolicyID: "env", Version: cfg.Env},
		Allocation: Allocation{
			AcademicPeriod:    a.AcademicPeriod,
			TargetSemesters:   append([]int(nil), a.TargetSemesters...),
			MaxLoadPerTeacher: a.MaxLoadPerTeacher,
			Strategy:          a.Strategy,
			Seed:              a.Seed,
			Departments:       depts,
		},
		Classification: Classification{
			RiskVariant:  cfg.Classification.RiskVariant,
			PenaltyTable: cfg.Classification.PenaltyTable,
			MarkScheme:   cfg.Classification.MarkScheme,
		},
		Schedule: Schedule{RiskRefresh: DefaultRiskRefreshSchedule},
	}
	if len(depts) > 0 {
		p.Schedule.Allocation = DefaultAllocationSchedule
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Resolve loads the policy file at path, or falls back to FromEnv when path
// is empty. The raw YAML is nil for an environment policy.
func Resolve(path string, cfg *config.Config) (*Config, []byte, error) {
	if path == "" {
		path = cfg.PolicyFile
	}
	if path == "" {
		p, err := FromEnv(cfg)
		return p, nil, err
	}
	return Load(path)
}
