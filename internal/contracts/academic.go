package contracts

import "time"

// Identifier types are opaque to the core; storage uses BIGSERIAL keys.
type (
	TeacherID    int64
	SubjectID    int64
	DepartmentID int64
	StudentID    int64
)

// Teacher is a staff member who can be assigned subjects
// ⭐ contract: the core only reads teachers, lifecycle belongs to storage
type Teacher struct {
	ID           TeacherID    `json:"id"`
	Name         string       `json:"name"`
	DepartmentID DepartmentID `json:"department_id"`
	Active       bool         `json:"active"`
}

// Subject is a course offering of a department in one semester slot
type Subject struct {
	ID           SubjectID    `json:"id"`
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	DepartmentID DepartmentID `json:"department_id"`
	Semester     int          `json:"semester"` // semester code, 1..8, not necessarily contiguous
	Credits      int          `json:"credits"`
}

// Assignment binds a teacher to a subject for an academic period.
// Assignments are never hard-deleted, only deactivated.
type Assignment struct {
	ID             int64     `json:"id,omitempty"` // zero until persisted
	TeacherID      TeacherID `json:"teacher_id"`
	SubjectID      SubjectID `json:"subject_id"`
	AcademicPeriod string    `json:"academic_period"`
	Semester       int       `json:"semester"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// CountsFor reports whether a counts toward load/"already assigned" status
// for the given period
func (a Assignment) CountsFor(period string) bool {
	return a.Active && a.AcademicPeriod == period
}

// PerformanceRecord holds internal-assessment marks of one student in one
// subject for one period, plus the derived classification
type PerformanceRecord struct {
	ID             int64      `json:"id,omitempty"`
	StudentID      StudentID  `json:"student_id"`
	SubjectID      SubjectID  `json:"subject_id"`
	AcademicPeriod string     `json:"academic_period"`
	Semester       int        `json:"semester"`
	Internal1      float64    `json:"internal1"`
	Internal2      float64    `json:"internal2"`
	Seminar        float64    `json:"seminar"`
	Assessment     float64    `json:"assessment"`
	Scheme         string     `json:"scheme"` // mark scheme the marks were entered under
	Total          float64    `json:"total"`
	MaxTotal       float64    `json:"max_total"`   // declared maximum of Total
	FinalScore     float64    `json:"final_score"` // 0..20
	Attendance     float64    `json:"attendance"`  // percent
	Grade          Grade      `json:"grade"`
	Risk           RiskStatus `json:"risk"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
}

// AttendanceRecord holds monthly attendance of a student in a subject
type AttendanceRecord struct {
	ID            int64       `json:"id,omitempty"`
	StudentID     StudentID   `json:"student_id"`
	SubjectID     SubjectID   `json:"subject_id"`
	Month         int         `json:"month"`
	Year          int         `json:"year"`
	TotalSessions int         `json:"total_sessions"`
	Attended      int         `json:"attended"`
	Percent       float64     `json:"percent"`
	PenaltyTier   PenaltyTier `json:"penalty_tier"`
	PenaltyAmount int         `json:"penalty_amount"`
	UpdatedAt     time.Time   `json:"updated_at,omitempty"`
}
