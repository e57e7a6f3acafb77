package allocation

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/pkg/database"
)

// psql builds PostgreSQL ($n) placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	teachersTable    = "academic.teachers"
	subjectsTable    = "academic.subjects"
	assignmentsTable = "academic.teacher_subject_assignments"
)

// Repository persists assignments.
// ⭐ SSOT: uniqueness of active (subject, period) is enforced here, by a
// check-and-insert inside one transaction backed by the partial unique index
// ux_assignment_active (subject_id, academic_period) WHERE active.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new assignment repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveResult is the outcome of persisting a run's proposals
type SaveResult struct {
	Saved     []contracts.Assignment `json:"saved"`
	Conflicts []contracts.Assignment `json:"conflicts"` // subject already held an active assignment
}

// LoadSnapshot reads teachers, in-scope subjects and their active
// assignments for the request's department and period
func (r *Repository) LoadSnapshot(ctx context.Context, req Request) (Snapshot, error) {
	var snap Snapshot

	teachers, err := r.loadTeachers(ctx, req.DepartmentID)
	if err != nil {
		return snap, fmt.Errorf("load teachers: %w", err)
	}
	subjects, err := r.loadSubjects(ctx, req.DepartmentID, req.TargetSemesters)
	if err != nil {
		return snap, fmt.Errorf("load subjects: %w", err)
	}
	assignments, err := r.loadActiveAssignments(ctx, req)
	if err != nil {
		return snap, fmt.Errorf("load assignments: %w", err)
	}

	snap.Teachers = teachers
	snap.Subjects = subjects
	snap.Assignments = assignments
	return snap, nil
}

func (r *Repository) loadTeachers(ctx context.Context, dept contracts.DepartmentID) ([]contracts.Teacher, error) {
	query, args, err := psql.
		Select("id", "name", "department_id", "active").
		From(teachersTable).
		Where(sq.Eq{"department_id": dept, "active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.Teacher
	for rows.Next() {
		var t contracts.Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.DepartmentID, &t.Active); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) loadSubjects(ctx context.Context, dept contracts.DepartmentID, semesters []int) ([]contracts.Subject, error) {
	query, args, err := psql.
		Select("id", "code", "name", "department_id", "semester", "credits").
		From(subjectsTable).
		Where(sq.Eq{"department_id": dept, "semester": semesters}).
		OrderBy("semester", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.Subject
	for rows.Next() {
		var s contracts.Subject
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.DepartmentID, &s.Semester, &s.Credits); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) loadActiveAssignments(ctx context.Context, req Request) ([]contracts.Assignment, error) {
	query, args, err := psql.
		Select("a.id", "a.teacher_id", "a.subject_id", "a.academic_period", "a.semester", "a.active", "a.created_at").
		From(assignmentsTable + " a").
		Join(subjectsTable + " s ON s.id = a.subject_id").
		Where(sq.Eq{
			"s.department_id":   req.DepartmentID,
			"s.semester":        req.TargetSemesters,
			"a.academic_period": req.AcademicPeriod,
			"a.active":          true,
		}).
		OrderBy("a.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.Assignment
	for rows.Next() {
		var a contracts.Assignment
		if err := rows.Scan(&a.ID, &a.TeacherID, &a.SubjectID, &a.AcademicPeriod, &a.Semester, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAssignments inserts proposals in one transaction. A proposal whose
// subject already has an active assignment for the period is skipped and
// reported as a conflict.
func (r *Repository) SaveAssignments(ctx context.Context, proposals []contracts.Assignment) (*SaveResult, error) {
	res := &SaveResult{
		Saved:     []contracts.Assignment{},
		Conflicts: []contracts.Assignment{},
	}
	if len(proposals) == 0 {
		return res, nil
	}

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range proposals {
			held, err := activeExists(ctx, tx, p.SubjectID, p.AcademicPeriod)
			if err != nil {
				return err
			}
			if held {
				res.Conflicts = append(res.Conflicts, p)
				continue
			}

			query, args, err := psql.
				Insert(assignmentsTable).
				Columns("teacher_id", "subject_id", "academic_period", "semester", "active").
				Values(p.TeacherID, p.SubjectID, p.AcademicPeriod, p.Semester, true).
				Suffix("ON CONFLICT DO NOTHING RETURNING id, created_at").
				ToSql()
			if err != nil {
				return err
			}

			saved := p
			saved.Active = true
			err = tx.QueryRow(ctx, query, args...).Scan(&saved.ID, &saved.CreatedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				res.Conflicts = append(res.Conflicts, p)
				continue
			}
			if err != nil {
				return fmt.Errorf("insert assignment for subject %d: %w", p.SubjectID, err)
			}
			res.Saved = append(res.Saved, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func activeExists(ctx context.Context, tx pgx.Tx, subject contracts.SubjectID, period string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From(assignmentsTable).
		Where(sq.Eq{"subject_id": subject, "academic_period": period, "active": true}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = tx.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check active assignment for subject %d: %w", subject, err)
	}
	return true, nil
}

// DeactivateAssignments soft-deletes assignments by id.
// Returns the number of rows that were still active.
func (r *Repository) DeactivateAssignments(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := psql.
		Update(assignmentsTable).
		Set("active", false).
		Set("deactivated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ids, "active": true}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}
