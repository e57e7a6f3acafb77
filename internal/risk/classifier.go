package risk

import (
	"github.com/wonny/acadport/backend/internal/contracts"
)

// =============================================================================
// Grade / Risk Classification (Pure)
// =============================================================================

// Score scale bounds. Final scores are normalised onto 0..20 by FinalScore.
const (
	MaxFinalScore  = 20.0
	MaxAttendance  = 100.0
	CriticalAttend = 70.0
)

// RiskVariant selects one of the two rule sets used across the system.
// ⭐ SSOT: both are kept as named variants, callers must pick one explicitly
type RiskVariant string

const (
	// VariantFourBucket: Critical / Average / Safe / Best
	VariantFourBucket RiskVariant = "four_bucket"
	// VariantFiveBucket: Critical / High Risk / Average / Safe (dashboard distribution)
	VariantFiveBucket RiskVariant = "five_bucket"
)

// ParseRiskVariant validates a variant name
func ParseRiskVariant(s string) (RiskVariant, error) {
	switch v := RiskVariant(s); v {
	case VariantFourBucket, VariantFiveBucket:
		return v, nil
	default:
		return "", configErr("unknown risk variant %q", s)
	}
}

// Classification 분류 결과
type Classification struct {
	Grade contracts.Grade      `json:"grade"`
	Risk  contracts.RiskStatus `json:"risk"`
}

// Grade maps a 0..20 final score to a letter grade.
// Lower bounds are inclusive.
func Grade(final float64) contracts.Grade {
	switch {
	case final >= 18:
		return contracts.GradeAPlus
	case final >= 15:
		return contracts.GradeA
	case final >= 12:
		return contracts.GradeB
	case final >= 10:
		return contracts.GradeC
	default:
		return contracts.GradeD
	}
}

// Classify derives grade and risk status for one student in one subject
func Classify(attendance, final float64, variant RiskVariant) (Classification, error) {
	if err := checkAttendance(attendance); err != nil {
		return Classification{}, err
	}
	if err := checkFinal(final); err != nil {
		return Classification{}, err
	}

	var status contracts.RiskStatus
	switch variant {
	case VariantFourBucket:
		status = fourBucket(attendance, final)
	case VariantFiveBucket:
		status = fiveBucket(attendance, final)
	default:
		return Classification{}, configErr("unknown risk variant %q", variant)
	}

	return Classification{Grade: Grade(final), Risk: status}, nil
}

func fourBucket(attendance, final float64) contracts.RiskStatus {
	switch {
	case attendance < CriticalAttend:
		return contracts.RiskCritical
	case final < 10:
		return contracts.RiskCritical
	case final < 15:
		return contracts.RiskAverage
	case final >= 18:
		return contracts.RiskBest
	default:
		return contracts.RiskSafe
	}
}

func fiveBucket(attendance, final float64) contracts.RiskStatus {
	switch {
	case attendance < CriticalAttend:
		return contracts.RiskCritical
	case final < 10:
		return contracts.RiskHigh
	case final < 15:
		return contracts.RiskAverage
	default:
		return contracts.RiskSafe
	}
}

// OverallRisk summarises a student across subjects from averaged
// attendance and final score
func OverallRisk(avgAttendance, avgFinal float64) (contracts.RiskStatus, error) {
	if err := checkAttendance(avgAttendance); err != nil {
		return "", err
	}
	if err := checkFinal(avgFinal); err != nil {
		return "", err
	}

	switch {
	case avgAttendance < CriticalAttend || avgFinal < 10:
		return contracts.RiskCritical, nil
	case avgFinal < 12:
		return contracts.RiskAverage, nil
	case avgFinal >= 18 && avgAttendance >= 90:
		return contracts.RiskBest, nil
	default:
		return contracts.RiskSafe, nil
	}
}

func checkAttendance(attendance float64) error {
	if attendance < 0 || attendance > MaxAttendance || attendance != attendance {
		return domainErr("attendance %.2f outside [0, 100]", attendance)
	}
	return nil
}

func checkFinal(final float64) error {
	if final < 0 || final > MaxFinalScore || final != final {
		return domainErr("final score %.2f outside [0, 20]", final)
	}
	return nil
}
