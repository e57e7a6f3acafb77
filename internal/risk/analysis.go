package risk

import (
	"fmt"
	"math"

	"github.com/wonny/acadport/backend/internal/contracts"
)

// =============================================================================
// Batch / Trend Analysis
// =============================================================================

// Classified is one student's classified result in a batch
type Classified struct {
	StudentID  contracts.StudentID  `json:"student_id"`
	Attendance float64              `json:"attendance"`
	Final      float64              `json:"final"`
	Risk       contracts.RiskStatus `json:"risk"`
}

// BatchStats 클래스 단위 분포
type BatchStats struct {
	Total         int     `json:"total"`
	Critical      int     `json:"critical"`
	HighRisk      int     `json:"high_risk"`
	Average       int     `json:"average"`
	Safe          int     `json:"safe"`
	Best          int     `json:"best"`
	AvgFinal      float64 `json:"avg_final"`      // 1 dp
	AvgAttendance float64 `json:"avg_attendance"` // whole percent
}

// AnalyzeBatch counts risk statuses and averages a class.
// Unrecognised labels are counted as Safe.
func AnalyzeBatch(items []Classified) BatchStats {
	stats := BatchStats{Total: len(items)}
	if len(items) == 0 {
		return stats
	}

	var sumFinal, sumAttend float64
	for _, it := range items {
		switch it.Risk {
		case contracts.RiskCritical:
			stats.Critical++
		case contracts.RiskHigh:
			stats.HighRisk++
		case contracts.RiskAverage:
			stats.Average++
		case contracts.RiskBest:
			stats.Best++
		default:
			stats.Safe++
		}
		sumFinal += it.Final
		sumAttend += it.Attendance
	}

	n := float64(len(items))
	stats.AvgFinal = Round(sumFinal/n, 1)
	stats.AvgAttendance = Round(sumAttend/n, 0)
	return stats
}

// AttendanceTrend summarises attendance percentages of a class
type AttendanceTrend struct {
	Total       int     `json:"total"`
	Safe        int     `json:"safe"`        // >= 75
	Moderate    int     `json:"moderate"`    // 70..75
	HighRisk    int     `json:"high_risk"`   // 60..70
	Critical    int     `json:"critical"`    // < 60
	Average     float64 `json:"average"`     // 1 dp
	RiskPercent float64 `json:"risk_percent"` // share below 75, 1 dp
}

// AnalyzeAttendanceTrend buckets attendance percentages
func AnalyzeAttendanceTrend(percents []float64) AttendanceTrend {
	trend := AttendanceTrend{Total: len(percents)}
	if len(percents) == 0 {
		return trend
	}

	var sum float64
	for _, p := range percents {
		sum += p
		switch {
		case p >= 75:
			trend.Safe++
		case p >= 70:
			trend.Moderate++
		case p >= 60:
			trend.HighRisk++
		default:
			trend.Critical++
		}
	}

	n := float64(len(percents))
	trend.Average = Round(sum/n, 1)
	trend.RiskPercent = Round(float64(trend.Moderate+trend.HighRisk+trend.Critical)/n*100, 1)
	return trend
}

// ImprovementSuggestion tells a student how many marks (on the 0..20 scale)
// reach the next grades. Between 12 and 15 both the A and A+ gaps are given.
func ImprovementSuggestion(final float64) string {
	gap := func(target float64) float64 { return Round(target-final, 1) }

	switch {
	case final >= 18:
		return "Excellent performance! Keep it up!"
	case final >= 15:
		return fmt.Sprintf("Need %.1f more marks to reach A+ grade.", gap(18))
	case final >= 12:
		return fmt.Sprintf("Need %.1f marks for A grade, %.1f for A+.", gap(15), gap(18))
	case final >= 10:
		return fmt.Sprintf("Need %.1f marks to reach B grade.", gap(12))
	default:
		return fmt.Sprintf("CRITICAL: Need %.1f marks to pass. Immediate attention required!", gap(10))
	}
}

// =============================================================================
// Risk Probability (heuristic)
// =============================================================================

// RiskFeatures raw inputs of the probability heuristic
type RiskFeatures struct {
	Attendance float64 `json:"attendance"` // 0..100
	Internal1  float64 `json:"internal1"`
	Internal2  float64 `json:"internal2"`
	Assessment float64 `json:"assessment"`
	Seminar    float64 `json:"seminar"`
}

// SubScoreBounds maximum of each sub-score. Seminar and Assessment may be 0,
// in which case the part carries no weight.
type SubScoreBounds struct {
	Internal1  float64 `json:"internal1"`
	Internal2  float64 `json:"internal2"`
	Seminar    float64 `json:"seminar"`
	Assessment float64 `json:"assessment"`
}

// Noise returns a perturbation added to the probability. nil means none.
type Noise func() float64

// UniformNoise returns a Noise drawing from [-spread, spread) using draw,
// which must return values in [0, 1)
func UniformNoise(draw func() float64, spread float64) Noise {
	return func() float64 {
		return (draw()*2 - 1) * spread
	}
}

// ⭐ SSOT: probability weights
const (
	weightAttendance = 0.30
	weightInternal   = 0.20
	weightMinor      = 0.15 // seminar, assessment
)

// RiskProbability estimates the probability of failing from weighted
// features normalised by b. Weights of zero-bound parts are spread over the
// rest. Result is clamped to [0, 1] and rounded to 2 dp.
func RiskProbability(f RiskFeatures, b SubScoreBounds, noise Noise) (float64, error) {
	if b.Internal1 <= 0 || b.Internal2 <= 0 || b.Seminar < 0 || b.Assessment < 0 {
		return 0, configErr("sub-score bounds must be positive, got %+v", b)
	}
	if err := checkAttendance(f.Attendance); err != nil {
		return 0, err
	}

	parts := []struct {
		name   string
		value  float64
		max    float64
		weight float64
	}{
		{"internal1", f.Internal1, b.Internal1, weightInternal},
		{"internal2", f.Internal2, b.Internal2, weightInternal},
		{"assessment", f.Assessment, b.Assessment, weightMinor},
		{"seminar", f.Seminar, b.Seminar, weightMinor},
	}

	score := weightAttendance * (f.Attendance / MaxAttendance)
	weights := weightAttendance
	for _, p := range parts {
		if p.value < 0 || p.value > p.max || p.value != p.value {
			return 0, domainErr("%s %.2f outside [0, %.2f]", p.name, p.value, p.max)
		}
		if p.max == 0 {
			continue
		}
		score += p.weight * (p.value / p.max)
		weights += p.weight
	}

	p := 1 - clamp01(score/weights)
	if noise != nil {
		p += noise()
	}
	return Round(clamp01(p), 2), nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
