package risk

import (
	"github.com/wonny/acadport/backend/internal/contracts"
)

// PenaltyTable selects the attendance thresholds used for fines
type PenaltyTable string

const (
	// PenaltyTableStandard thresholds {75, 70, 60}
	PenaltyTableStandard PenaltyTable = "standard"
	// PenaltyTableStrict thresholds {90, 80, 70}
	PenaltyTableStrict PenaltyTable = "strict"
)

// penaltyThresholds lower bounds for No / Low / Medium; anything below is High
var penaltyThresholds = map[PenaltyTable][3]float64{
	PenaltyTableStandard: {75, 70, 60},
	PenaltyTableStrict:   {90, 80, 70},
}

// ParsePenaltyTable validates a table name
func ParsePenaltyTable(s string) (PenaltyTable, error) {
	t := PenaltyTable(s)
	if _, ok := penaltyThresholds[t]; !ok {
		return "", configErr("unknown penalty table %q", s)
	}
	return t, nil
}

// PenaltyResult 출석 패널티 결과
type PenaltyResult struct {
	Tier   contracts.PenaltyTier `json:"tier"`
	Amount int                   `json:"amount"`
}

// Penalty maps an attendance percentage to a tier and fine.
// Independent of academic score.
func Penalty(attendance float64, table PenaltyTable) (PenaltyResult, error) {
	th, ok := penaltyThresholds[table]
	if !ok {
		return PenaltyResult{}, configErr("unknown penalty table %q", table)
	}
	if err := checkAttendance(attendance); err != nil {
		return PenaltyResult{}, err
	}

	tier := contracts.PenaltyHigh
	switch {
	case attendance >= th[0]:
		tier = contracts.PenaltyNone
	case attendance >= th[1]:
		tier = contracts.PenaltyLow
	case attendance >= th[2]:
		tier = contracts.PenaltyMedium
	}

	return PenaltyResult{Tier: tier, Amount: tier.Amount()}, nil
}
