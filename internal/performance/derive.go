package performance

import (
	"fmt"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/risk"
)

// Policy is the classification configuration a service applies
type Policy struct {
	Scheme  MarkScheme
	Variant risk.RiskVariant
	Table   risk.PenaltyTable
}

// Check validates all parts of the policy
func (p Policy) Check() error {
	if err := p.Scheme.Check(); err != nil {
		return err
	}
	if _, err := risk.ParseRiskVariant(string(p.Variant)); err != nil {
		return err
	}
	if _, err := risk.ParsePenaltyTable(string(p.Table)); err != nil {
		return err
	}
	return nil
}

// MarksInput is one marks entry
type MarksInput struct {
	StudentID        contracts.StudentID `json:"student_id"`
	SubjectID        contracts.SubjectID `json:"subject_id"`
	AcademicPeriod   string              `json:"academic_period"`
	Semester         int                 `json:"semester"`
	Marks            Marks               `json:"marks"`
	AttendedSessions int                 `json:"attended_sessions"`
	TotalSessions    int                 `json:"total_sessions"`
}

// AttendanceInput is one monthly attendance entry
type AttendanceInput struct {
	StudentID     contracts.StudentID `json:"student_id"`
	SubjectID     contracts.SubjectID `json:"subject_id"`
	Month         int                 `json:"month"`
	Year          int                 `json:"year"`
	TotalSessions int                 `json:"total_sessions"`
	Attended      int                 `json:"attended"`
}

// DerivePerformance computes every derived field of a performance record
func DerivePerformance(in MarksInput, p Policy) (*contracts.PerformanceRecord, error) {
	if err := p.Scheme.Validate(in.Marks); err != nil {
		return nil, err
	}

	attendance, err := risk.AttendancePercent(in.AttendedSessions, in.TotalSessions)
	if err != nil {
		return nil, err
	}

	total := in.Marks.Total()
	final, err := risk.FinalScore(total, p.Scheme.MaxTotal())
	if err != nil {
		return nil, err
	}

	cls, err := risk.Classify(attendance, final, p.Variant)
	if err != nil {
		return nil, err
	}

	return &contracts.PerformanceRecord{
		StudentID:      in.StudentID,
		SubjectID:      in.SubjectID,
		AcademicPeriod: in.AcademicPeriod,
		Semester:       in.Semester,
		Internal1:      in.Marks.Internal1,
		Internal2:      in.Marks.Internal2,
		Seminar:        in.Marks.Seminar,
		Assessment:     in.Marks.Assessment,
		Scheme:         p.Scheme.Name,
		Total:          total,
		MaxTotal:       p.Scheme.MaxTotal(),
		FinalScore:     final,
		Attendance:     attendance,
		Grade:          cls.Grade,
		Risk:           cls.Risk,
	}, nil
}

// DeriveAttendance computes percent and penalty of a monthly record
func DeriveAttendance(in AttendanceInput, table risk.PenaltyTable) (*contracts.AttendanceRecord, error) {
	if in.Month < 1 || in.Month > 12 {
		return nil, fmt.Errorf("%w: month %d outside [1, 12]", risk.ErrDomain, in.Month)
	}

	percent, err := risk.AttendancePercent(in.Attended, in.TotalSessions)
	if err != nil {
		return nil, err
	}
	pen, err := risk.Penalty(percent, table)
	if err != nil {
		return nil, err
	}

	return &contracts.AttendanceRecord{
		StudentID:     in.StudentID,
		SubjectID:     in.SubjectID,
		Month:         in.Month,
		Year:          in.Year,
		TotalSessions: in.TotalSessions,
		Attended:      in.Attended,
		Percent:       percent,
		PenaltyTier:   pen.Tier,
		PenaltyAmount: pen.Amount,
	}, nil
}

// Reclassify re-derives final score, grade and risk of a stored record.
// The final score keeps the maximum the marks were entered under, only the
// variant of p applies. changed reports whether any derived field differs.
func Reclassify(rec contracts.PerformanceRecord, p Policy) (updated contracts.PerformanceRecord, changed bool, err error) {
	final, err := risk.FinalScore(rec.Total, rec.MaxTotal)
	if err != nil {
		return rec, false, err
	}
	cls, err := risk.Classify(rec.Attendance, final, p.Variant)
	if err != nil {
		return rec, false, err
	}

	updated = rec
	updated.FinalScore = final
	updated.Grade = cls.Grade
	updated.Risk = cls.Risk
	changed = updated.FinalScore != rec.FinalScore || updated.Grade != rec.Grade || updated.Risk != rec.Risk
	return updated, changed, nil
}
