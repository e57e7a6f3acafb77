package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acadport/backend/internal/contracts"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		final float64
		want  contracts.Grade
	}{
		{20, contracts.GradeAPlus},
		{18, contracts.GradeAPlus},
		{17.9, contracts.GradeA},
		{15, contracts.GradeA},
		{14.9, contracts.GradeB},
		{12, contracts.GradeB},
		{11.9, contracts.GradeC},
		{10, contracts.GradeC},
		{9.9, contracts.GradeD},
		{0, contracts.GradeD},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.final), "final=%v", tt.final)
	}
}

func TestClassify_FourBucketBoundaries(t *testing.T) {
	tests := []struct {
		attendance float64
		final      float64
		want       contracts.RiskStatus
	}{
		{69.9, 20, contracts.RiskCritical},
		{70.0, 9.9, contracts.RiskCritical},
		{70.0, 10.0, contracts.RiskAverage},
		{70.0, 14.9, contracts.RiskAverage},
		{70.0, 15.0, contracts.RiskSafe},
		{90.0, 18.0, contracts.RiskBest},
		{70.0, 17.9, contracts.RiskSafe},
	}

	for _, tt := range tests {
		got, err := Classify(tt.attendance, tt.final, VariantFourBucket)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Risk, "classify(%v, %v)", tt.attendance, tt.final)
	}
}

func TestClassify_FiveBucketBoundaries(t *testing.T) {
	tests := []struct {
		attendance float64
		final      float64
		want       contracts.RiskStatus
	}{
		{69.9, 20, contracts.RiskCritical},
		{70.0, 9.9, contracts.RiskHigh},
		{70.0, 10.0, contracts.RiskAverage},
		{70.0, 14.9, contracts.RiskAverage},
		{70.0, 15.0, contracts.RiskSafe},
		{90.0, 18.0, contracts.RiskSafe},
		{100, 20, contracts.RiskSafe},
	}

	for _, tt := range tests {
		got, err := Classify(tt.attendance, tt.final, VariantFiveBucket)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Risk, "classify(%v, %v)", tt.attendance, tt.final)
	}
}

func TestClassify_Grade(t *testing.T) {
	got, err := Classify(90, 18, VariantFourBucket)
	require.NoError(t, err)
	assert.Equal(t, contracts.GradeAPlus, got.Grade)
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(80, 15, RiskVariant("seven_bucket"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Classify(-1, 15, VariantFourBucket)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = Classify(100.1, 15, VariantFourBucket)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = Classify(80, 20.5, VariantFiveBucket)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = Classify(80, -0.1, VariantFiveBucket)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestParseRiskVariant(t *testing.T) {
	v, err := ParseRiskVariant("five_bucket")
	require.NoError(t, err)
	assert.Equal(t, VariantFiveBucket, v)

	_, err = ParseRiskVariant("")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestOverallRisk(t *testing.T) {
	tests := []struct {
		name       string
		attendance float64
		final      float64
		want       contracts.RiskStatus
	}{
		{"low attendance", 65, 19, contracts.RiskCritical},
		{"failing", 95, 9, contracts.RiskCritical},
		{"below B", 95, 11.5, contracts.RiskAverage},
		{"top", 90, 18, contracts.RiskBest},
		{"top marks lower attendance", 85, 19, contracts.RiskSafe},
		{"middle", 80, 13, contracts.RiskSafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OverallRisk(tt.attendance, tt.final)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := OverallRisk(120, 10)
	assert.ErrorIs(t, err, ErrDomain)
}
