package performance

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	performanceTable = "academic.performance_records"
	attendanceTable  = "academic.attendance_records"
)

// Repository persists performance and attendance records
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new performance repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertPerformance inserts or replaces the record of (student, subject, period)
func (r *Repository) UpsertPerformance(ctx context.Context, rec *contracts.PerformanceRecord) error {
	query, args, err := psql.
		Insert(performanceTable).
		Columns("student_id", "subject_id", "academic_period", "semester",
			"internal1", "internal2", "seminar", "assessment", "scheme",
			"total", "max_total", "final_score", "attendance", "grade", "risk_status").
		Values(rec.StudentID, rec.SubjectID, rec.AcademicPeriod, rec.Semester,
			rec.Internal1, rec.Internal2, rec.Seminar, rec.Assessment, rec.Scheme,
			rec.Total, rec.MaxTotal, rec.FinalScore, rec.Attendance, string(rec.Grade), string(rec.Risk)).
		Suffix(`ON CONFLICT (student_id, subject_id, academic_period) DO UPDATE SET
			semester = EXCLUDED.semester,
			internal1 = EXCLUDED.internal1,
			internal2 = EXCLUDED.internal2,
			seminar = EXCLUDED.seminar,
			assessment = EXCLUDED.assessment,
			scheme = EXCLUDED.scheme,
			total = EXCLUDED.total,
			max_total = EXCLUDED.max_total,
			final_score = EXCLUDED.final_score,
			attendance = EXCLUDED.attendance,
			grade = EXCLUDED.grade,
			risk_status = EXCLUDED.risk_status,
			updated_at = NOW()
		RETURNING id, updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert performance: %w", err)
	}
	return nil
}

// UpsertAttendance inserts or replaces the record of (student, subject, month, year)
func (r *Repository) UpsertAttendance(ctx context.Context, rec *contracts.AttendanceRecord) error {
	query, args, err := psql.
		Insert(attendanceTable).
		Columns("student_id", "subject_id", "month", "year",
			"total_sessions", "attended", "percent", "penalty_tier", "penalty_amount").
		Values(rec.StudentID, rec.SubjectID, rec.Month, rec.Year,
			rec.TotalSessions, rec.Attended, rec.Percent, string(rec.PenaltyTier), rec.PenaltyAmount).
		Suffix(`ON CONFLICT (student_id, subject_id, month, year) DO UPDATE SET
			total_sessions = EXCLUDED.total_sessions,
			attended = EXCLUDED.attended,
			percent = EXCLUDED.percent,
			penalty_tier = EXCLUDED.penalty_tier,
			penalty_amount = EXCLUDED.penalty_amount,
			updated_at = NOW()
		RETURNING id, updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

var performanceColumns = []string{
	"id", "student_id", "subject_id", "academic_period", "semester",
	"internal1", "internal2", "seminar", "assessment", "scheme",
	"total", "max_total", "final_score", "attendance", "grade", "risk_status", "updated_at",
}

// ListPerformance lists records of a period, optionally for one subject (0 = all)
func (r *Repository) ListPerformance(ctx context.Context, period string, subjectID contracts.SubjectID) ([]contracts.PerformanceRecord, error) {
	b := psql.
		Select(performanceColumns...).
		From(performanceTable).
		Where(sq.Eq{"academic_period": period}).
		OrderBy("subject_id", "student_id")
	if subjectID != 0 {
		b = b.Where(sq.Eq{"subject_id": subjectID})
	}
	return r.queryPerformance(ctx, b)
}

// ListStudentPerformance lists every subject record of one student in a period
func (r *Repository) ListStudentPerformance(ctx context.Context, studentID contracts.StudentID, period string) ([]contracts.PerformanceRecord, error) {
	b := psql.
		Select(performanceColumns...).
		From(performanceTable).
		Where(sq.Eq{"student_id": studentID, "academic_period": period}).
		OrderBy("subject_id")
	return r.queryPerformance(ctx, b)
}

func (r *Repository) queryPerformance(ctx context.Context, b sq.SelectBuilder) ([]contracts.PerformanceRecord, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.PerformanceRecord
	for rows.Next() {
		var rec contracts.PerformanceRecord
		var grade, status string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.SubjectID, &rec.AcademicPeriod, &rec.Semester,
			&rec.Internal1, &rec.Internal2, &rec.Seminar, &rec.Assessment, &rec.Scheme,
			&rec.Total, &rec.MaxTotal, &rec.FinalScore, &rec.Attendance, &grade, &status, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Grade = contracts.Grade(grade)
		rec.Risk = contracts.RiskStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateClassification writes derived fields of records in one transaction
func (r *Repository) UpdateClassification(ctx context.Context, recs []contracts.PerformanceRecord) error {
	if len(recs) == 0 {
		return nil
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, rec := range recs {
			query, args, err := psql.
				Update(performanceTable).
				Set("final_score", rec.FinalScore).
				Set("grade", string(rec.Grade)).
				Set("risk_status", string(rec.Risk)).
				Set("updated_at", sq.Expr("NOW()")).
				Where(sq.Eq{"id": rec.ID}).
				ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("update record %d: %w", rec.ID, err)
			}
		}
		return nil
	})
}
