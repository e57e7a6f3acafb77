package contracts

// Grade is the letter grade derived from a 0..20 final score
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// RiskStatus is the categorical risk label of a student in a subject
type RiskStatus string

const (
	RiskCritical RiskStatus = "Critical"
	RiskHigh     RiskStatus = "High Risk"
	RiskAverage  RiskStatus = "Average"
	RiskSafe     RiskStatus = "Safe"
	RiskBest     RiskStatus = "Best"
)

// PenaltyTier is derived purely from attendance percentage
type PenaltyTier string

const (
	PenaltyNone   PenaltyTier = "No Penalty"
	PenaltyLow    PenaltyTier = "Low Penalty"
	PenaltyMedium PenaltyTier = "Medium Penalty"
	PenaltyHigh   PenaltyTier = "High Penalty"
)

// Amount returns the fine attached to a tier
func (t PenaltyTier) Amount() int {
	switch t {
	case PenaltyLow:
		return 200
	case PenaltyMedium:
		return 500
	case PenaltyHigh:
		return 1000
	default:
		return 0
	}
}
