package audit

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const runsTable = "audit.allocation_runs"

// Repository handles audit data persistence
// ⭐ SSOT: Audit 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun appends a run record. A repeated run_id is ignored.
func (r *Repository) SaveRun(ctx context.Context, rec *RunRecord) error {
	query, args, err := psql.
		Insert(runsTable).
		Columns("run_id", "kind", "department_id", "academic_period", "strategy",
			"assigned", "failed", "conflicts", "deactivated", "policy_hash", "recorded_at").
		Values(rec.RunID, rec.Kind, rec.DepartmentID, rec.AcademicPeriod, rec.Strategy,
			rec.Assigned, rec.Failed, rec.Conflicts, rec.Deactivated, rec.PolicyHash, rec.RecordedAt).
		Suffix("ON CONFLICT (run_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&rec.ID); err != nil {
			return fmt.Errorf("failed to scan run id: %w", err)
		}
	}
	return rows.Err()
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, f RunFilter) ([]RunRecord, error) {
	q := psql.
		Select("id", "run_id", "kind", "department_id", "academic_period", "strategy",
			"assigned", "failed", "conflicts", "deactivated", "policy_hash", "recorded_at").
		From(runsTable).
		OrderBy("recorded_at DESC", "id DESC").
		Limit(f.limit())
	if f.DepartmentID > 0 {
		q = q.Where(sq.Eq{"department_id": f.DepartmentID})
	}
	if f.AcademicPeriod != "" {
		q = q.Where(sq.Eq{"academic_period": f.AcademicPeriod})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Kind, &rec.DepartmentID, &rec.AcademicPeriod, &rec.Strategy,
			&rec.Assigned, &rec.Failed, &rec.Conflicts, &rec.Deactivated, &rec.PolicyHash, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}
