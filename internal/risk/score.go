package risk

import "math"

// FinalScore normalises a raw sub-score total onto the 0..20 scale,
// rounded to one decimal (half away from zero).
// maxPossibleRaw is declared by the caller's mark scheme.
func FinalScore(totalRaw, maxPossibleRaw float64) (float64, error) {
	if maxPossibleRaw <= 0 || math.IsNaN(maxPossibleRaw) || math.IsInf(maxPossibleRaw, 0) {
		return 0, configErr("max possible raw score must be positive, got %.2f", maxPossibleRaw)
	}
	if totalRaw < 0 || totalRaw > maxPossibleRaw || math.IsNaN(totalRaw) {
		return 0, domainErr("raw total %.2f outside [0, %.2f]", totalRaw, maxPossibleRaw)
	}
	return Round(totalRaw/maxPossibleRaw*MaxFinalScore, 1), nil
}

// AttendancePercent returns attended/total*100 truncated to a whole percent
func AttendancePercent(attended, total int) (float64, error) {
	if total <= 0 {
		return 0, domainErr("total sessions must be positive, got %d", total)
	}
	if attended < 0 || attended > total {
		return 0, domainErr("attended %d outside [0, %d]", attended, total)
	}
	return float64(attended * 100 / total), nil
}

// Round rounds v to the given number of decimals, half away from zero.
// Values are nudged by a relative epsilon so that e.g. 16.25 stored as
// 16.249999... still rounds up.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	x := v * p
	if x >= 0 {
		x += 1e-9 * math.Max(1, math.Abs(x))
	} else {
		x -= 1e-9 * math.Max(1, math.Abs(x))
	}
	return math.Round(x) / p
}
