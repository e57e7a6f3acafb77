package performance

import (
	"fmt"

	"github.com/wonny/acadport/backend/internal/risk"
)

// MarkScheme declares the bounds of the four internal-assessment parts.
// Bounds are caller configuration, the classifier never assumes a scale.
type MarkScheme struct {
	Name          string  `json:"name"`
	Internal1Max  float64 `json:"internal1_max"`
	Internal2Max  float64 `json:"internal2_max"`
	SeminarMax    float64 `json:"seminar_max"`
	AssessmentMax float64 `json:"assessment_max"`
}

var (
	// SchemeSeventyTen two 70-mark internals plus 10-mark seminar/assessment (max 160)
	SchemeSeventyTen = MarkScheme{Name: "seventy_ten", Internal1Max: 70, Internal2Max: 70, SeminarMax: 10, AssessmentMax: 10}
	// SchemeTwentyFive two 20-mark internals plus 5-mark seminar/assessment (max 50)
	SchemeTwentyFive = MarkScheme{Name: "twenty_five", Internal1Max: 20, Internal2Max: 20, SeminarMax: 5, AssessmentMax: 5}
)

var schemes = map[string]MarkScheme{
	SchemeSeventyTen.Name: SchemeSeventyTen,
	SchemeTwentyFive.Name: SchemeTwentyFive,
}

// ParseMarkScheme looks up a built-in scheme by name
func ParseMarkScheme(name string) (MarkScheme, error) {
	s, ok := schemes[name]
	if !ok {
		return MarkScheme{}, fmt.Errorf("%w: unknown mark scheme %q", risk.ErrConfiguration, name)
	}
	return s, nil
}

// MaxTotal is the highest possible raw total
func (m MarkScheme) MaxTotal() float64 {
	return m.Internal1Max + m.Internal2Max + m.SeminarMax + m.AssessmentMax
}

// Bounds the per-part maxima as the probability heuristic takes them
func (m MarkScheme) Bounds() risk.SubScoreBounds {
	return risk.SubScoreBounds{
		Internal1:  m.Internal1Max,
		Internal2:  m.Internal2Max,
		Seminar:    m.SeminarMax,
		Assessment: m.AssessmentMax,
	}
}

// Check validates the scheme itself
func (m MarkScheme) Check() error {
	if m.Internal1Max <= 0 || m.Internal2Max <= 0 || m.SeminarMax < 0 || m.AssessmentMax < 0 {
		return fmt.Errorf("%w: mark scheme %q has non-positive bounds", risk.ErrConfiguration, m.Name)
	}
	return nil
}

// Marks are the four raw sub-scores
type Marks struct {
	Internal1  float64 `json:"internal1"`
	Internal2  float64 `json:"internal2"`
	Seminar    float64 `json:"seminar"`
	Assessment float64 `json:"assessment"`
}

// Total sums the sub-scores
func (m Marks) Total() float64 {
	return m.Internal1 + m.Internal2 + m.Seminar + m.Assessment
}

// Validate rejects any sub-score outside its bound. Nothing is clamped.
func (m MarkScheme) Validate(marks Marks) error {
	parts := []struct {
		name  string
		value float64
		max   float64
	}{
		{"internal1", marks.Internal1, m.Internal1Max},
		{"internal2", marks.Internal2, m.Internal2Max},
		{"seminar", marks.Seminar, m.SeminarMax},
		{"assessment", marks.Assessment, m.AssessmentMax},
	}
	for _, p := range parts {
		if p.value < 0 || p.value > p.max || p.value != p.value {
			return fmt.Errorf("%w: %s %.2f outside [0, %.0f]", risk.ErrDomain, p.name, p.value, p.max)
		}
	}
	return nil
}
