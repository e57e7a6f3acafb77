package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/contracts"
)

func TestPenalty_Standard(t *testing.T) {
	tests := []struct {
		attendance float64
		tier       contracts.PenaltyTier
		amount     int
	}{
		{100, contracts.PenaltyNone, 0},
		{75.0, contracts.PenaltyNone, 0},
		{74.9, contracts.PenaltyLow, 200},
		{70.0, contracts.PenaltyLow, 200},
		{65.0, contracts.PenaltyMedium, 500},
		{60.0, contracts.PenaltyMedium, 500},
		{59.9, contracts.PenaltyHigh, 1000},
		{0, contracts.PenaltyHigh, 1000},
	}

	for _, tt := range tests {
		got, err := Penalty(tt.attendance, PenaltyTableStandard)
		require.NoError(t, err)
		assert.Equal(t, tt.tier, got.Tier, "penalty(%v)", tt.attendance)
		assert.Equal(t, tt.amount, got.Amount, "penalty(%v)", tt.attendance)
	}
}

func TestPenalty_Strict(t *testing.T) {
	tests := []struct {
		attendance float64
		tier       contracts.PenaltyTier
		amount     int
	}{
		{90, contracts.PenaltyNone, 0},
		{89.9, contracts.PenaltyLow, 200},
		{80, contracts.PenaltyLow, 200},
		{79.9, contracts.PenaltyMedium, 500},
		{70, contracts.PenaltyMedium, 500},
		{69.9, contracts.PenaltyHigh, 1000},
	}

	for _, tt := range tests {
		got, err := Penalty(tt.attendance, PenaltyTableStrict)
		require.NoError(t, err)
		assert.Equal(t, tt.tier, got.Tier, "penalty(%v)", tt.attendance)
		assert.Equal(t, tt.amount, got.Amount, "penalty(%v)", tt.attendance)
	}
}

func TestPenalty_Errors(t *testing.T) {
	_, err := Penalty(80, PenaltyTable("lenient"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Penalty(-5, PenaltyTableStandard)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = ParsePenaltyTable("strict")
	assert.NoError(t, err)

	_, err = ParsePenaltyTable("none")
	assert.ErrorIs(t, err, ErrConfiguration)
}
