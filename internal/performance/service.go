package performance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/risk"
	"github.com/wonny/acadport/backend/pkg/logger"
	"github.com/wonny/acadport/backend/pkg/redis"
)

// Store is the persistence the service needs. *Repository implements it.
type Store interface {
	UpsertPerformance(ctx context.Context, rec *contracts.PerformanceRecord) error
	UpsertAttendance(ctx context.Context, rec *contracts.AttendanceRecord) error
	ListPerformance(ctx context.Context, period string, subjectID contracts.SubjectID) ([]contracts.PerformanceRecord, error)
	ListStudentPerformance(ctx context.Context, studentID contracts.StudentID, period string) ([]contracts.PerformanceRecord, error)
	UpdateClassification(ctx context.Context, recs []contracts.PerformanceRecord) error
}

// ErrNoRecords is returned when a student has no record in a period
var ErrNoRecords = errors.New("performance: no records")

// Service is the marks/attendance entry collaborator of the classifier
type Service struct {
	store Store
	cache *redis.Cache
	log   *logger.Logger

	mu     sync.RWMutex
	policy Policy
	noise  risk.Noise
}

// NewService creates a new performance service
func NewService(store Store, cache *redis.Cache, policy Policy, log *logger.Logger) (*Service, error) {
	if err := policy.Check(); err != nil {
		return nil, err
	}
	return &Service{
		store:  store,
		cache:  cache,
		policy: policy,
		log:    log.WithComponent("performance"),
	}, nil
}

// Policy returns the policy currently applied
func (s *Service) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// SetPolicy swaps the policy (hot reload). Stored labels are only rewritten
// by RefreshRisk.
func (s *Service) SetPolicy(p Policy) error {
	if err := p.Check(); err != nil {
		return err
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"scheme":  p.Scheme.Name,
		"variant": p.Variant,
		"table":   p.Table,
	}).Info("Classification policy updated")
	return nil
}

// SetNoise sets the perturbation added to risk probabilities (nil = none)
func (s *Service) SetNoise(n risk.Noise) {
	s.mu.Lock()
	s.noise = n
	s.mu.Unlock()
}

// schemeOf resolves the scheme a record's marks were entered under. A
// custom scheme resolves only while it is still the one in force.
func (s *Service) schemeOf(rec contracts.PerformanceRecord) (MarkScheme, error) {
	if cur := s.Policy().Scheme; cur.Name == rec.Scheme && cur.MaxTotal() == rec.MaxTotal {
		return cur, nil
	}
	scheme, err := ParseMarkScheme(rec.Scheme)
	if err != nil {
		return MarkScheme{}, err
	}
	if scheme.MaxTotal() != rec.MaxTotal {
		return MarkScheme{}, fmt.Errorf("%w: record max total %.2f does not match scheme %q",
			risk.ErrConfiguration, rec.MaxTotal, rec.Scheme)
	}
	return scheme, nil
}

// probability estimates the failing probability of a stored record under
// the bounds of the scheme its marks were entered under
func (s *Service) probability(rec contracts.PerformanceRecord) (float64, error) {
	scheme, err := s.schemeOf(rec)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	noise := s.noise
	s.mu.RUnlock()

	return risk.RiskProbability(risk.RiskFeatures{
		Attendance: rec.Attendance,
		Internal1:  rec.Internal1,
		Internal2:  rec.Internal2,
		Assessment: rec.Assessment,
		Seminar:    rec.Seminar,
	}, scheme.Bounds(), noise)
}

// probabilityOrNil logs and drops probabilities of records with invalid
// stored values
func (s *Service) probabilityOrNil(rec contracts.PerformanceRecord) *float64 {
	p, err := s.probability(rec)
	if err != nil {
		s.log.WithError(err).WithField("record_id", rec.ID).Warn("Risk probability unavailable")
		return nil
	}
	return &p
}

// RecordMarks validates and classifies a marks entry and persists it
func (s *Service) RecordMarks(ctx context.Context, in MarksInput) (*contracts.PerformanceRecord, error) {
	if in.AcademicPeriod == "" {
		return nil, fmt.Errorf("%w: academic period is required", risk.ErrDomain)
	}

	rec, err := DerivePerformance(in, s.Policy())
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertPerformance(ctx, rec); err != nil {
		return nil, err
	}

	s.invalidate(ctx, rec.SubjectID, rec.AcademicPeriod)
	return rec, nil
}

// RecordAttendance derives percent/penalty and upserts the monthly record
func (s *Service) RecordAttendance(ctx context.Context, in AttendanceInput) (*contracts.AttendanceRecord, error) {
	rec, err := DeriveAttendance(in, s.Policy().Table)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertAttendance(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RefreshSummary reports a RefreshRisk pass
type RefreshSummary struct {
	Scanned int             `json:"scanned"`
	Updated int             `json:"updated"`
	Invalid int             `json:"invalid"`
	Batch   risk.BatchStats `json:"batch"`
}

// RefreshRisk re-derives final score and labels of every record in period
// with the current policy. Records whose stored values are out of domain
// are counted and left untouched.
func (s *Service) RefreshRisk(ctx context.Context, period string) (*RefreshSummary, error) {
	recs, err := s.store.ListPerformance(ctx, period, 0)
	if err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}

	p := s.Policy()
	sum := &RefreshSummary{Scanned: len(recs)}
	var changed []contracts.PerformanceRecord
	batch := make([]risk.Classified, 0, len(recs))
	subjects := make(map[contracts.SubjectID]bool)

	for _, rec := range recs {
		updated, diff, err := Reclassify(rec, p)
		if err != nil {
			sum.Invalid++
			s.log.WithError(err).WithField("record_id", rec.ID).Warn("Skipping record with invalid stored values")
			continue
		}
		if diff {
			changed = append(changed, updated)
			subjects[updated.SubjectID] = true
		}
		batch = append(batch, risk.Classified{
			StudentID:  updated.StudentID,
			Attendance: updated.Attendance,
			Final:      updated.FinalScore,
			Risk:       updated.Risk,
		})
	}

	if err := s.store.UpdateClassification(ctx, changed); err != nil {
		return nil, err
	}
	for id := range subjects {
		s.invalidate(ctx, id, period)
	}

	sum.Updated = len(changed)
	sum.Batch = risk.AnalyzeBatch(batch)

	s.log.WithFields(map[string]interface{}{
		"period":  period,
		"scanned": sum.Scanned,
		"updated": sum.Updated,
		"invalid": sum.Invalid,
	}).Info("Risk labels refreshed")

	return sum, nil
}

// StudentRisk is one student's standing in a subject summary
type StudentRisk struct {
	StudentID   contracts.StudentID  `json:"student_id"`
	FinalScore  float64              `json:"final_score"`
	Attendance  float64              `json:"attendance"`
	Risk        contracts.RiskStatus `json:"risk"`
	Probability *float64             `json:"probability,omitempty"` // failing, 0..1
}

// SubjectSummary is the class-level view of one subject
type SubjectSummary struct {
	SubjectID      contracts.SubjectID  `json:"subject_id"`
	AcademicPeriod string               `json:"academic_period"`
	Batch          risk.BatchStats      `json:"batch"`
	Attendance     risk.AttendanceTrend `json:"attendance"`
	Students       []StudentRisk        `json:"students"`
}

// Summary returns the risk distribution and attendance trend of a subject,
// cached until the next marks entry or refresh touching it
func (s *Service) Summary(ctx context.Context, subjectID contracts.SubjectID, period string) (*SubjectSummary, error) {
	key := redis.RiskSummaryKey(int64(subjectID), period)

	var cached SubjectSummary
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.WithError(err).Warn("Summary cache read failed")
	} else if ok {
		return &cached, nil
	}

	recs, err := s.store.ListPerformance(ctx, period, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}

	items := make([]risk.Classified, 0, len(recs))
	percents := make([]float64, 0, len(recs))
	students := make([]StudentRisk, 0, len(recs))
	for _, rec := range recs {
		items = append(items, risk.Classified{
			StudentID:  rec.StudentID,
			Attendance: rec.Attendance,
			Final:      rec.FinalScore,
			Risk:       rec.Risk,
		})
		percents = append(percents, rec.Attendance)
		students = append(students, StudentRisk{
			StudentID:   rec.StudentID,
			FinalScore:  rec.FinalScore,
			Attendance:  rec.Attendance,
			Risk:        rec.Risk,
			Probability: s.probabilityOrNil(rec),
		})
	}

	out := &SubjectSummary{
		SubjectID:      subjectID,
		AcademicPeriod: period,
		Batch:          risk.AnalyzeBatch(items),
		Attendance:     risk.AnalyzeAttendanceTrend(percents),
		Students:       students,
	}
	if err := s.cache.Set(ctx, key, out, redis.TTLShort); err != nil {
		s.log.WithError(err).Warn("Summary cache write failed")
	}
	return out, nil
}

// SubjectStanding is one subject of a student overview
type SubjectStanding struct {
	SubjectID   contracts.SubjectID  `json:"subject_id"`
	FinalScore  float64              `json:"final_score"`
	Attendance  float64              `json:"attendance"`
	Grade       contracts.Grade      `json:"grade"`
	Risk        contracts.RiskStatus `json:"risk"`
	Probability *float64             `json:"probability,omitempty"`
	Suggestion  string               `json:"suggestion"`
}

// StudentOverview is the cross-subject view of one student
type StudentOverview struct {
	StudentID      contracts.StudentID  `json:"student_id"`
	AcademicPeriod string               `json:"academic_period"`
	Subjects       []SubjectStanding    `json:"subjects"`
	AvgAttendance  float64              `json:"avg_attendance"` // 1 dp
	AvgFinal       float64              `json:"avg_final"`      // 1 dp
	Overall        contracts.RiskStatus `json:"overall"`
}

// StudentOverview averages a student's subjects in period and derives the
// overall risk from the averages
func (s *Service) StudentOverview(ctx context.Context, studentID contracts.StudentID, period string) (*StudentOverview, error) {
	recs, err := s.store.ListStudentPerformance(ctx, studentID, period)
	if err != nil {
		return nil, fmt.Errorf("list student performance: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: student %d in %s", ErrNoRecords, studentID, period)
	}

	out := &StudentOverview{
		StudentID:      studentID,
		AcademicPeriod: period,
		Subjects:       make([]SubjectStanding, 0, len(recs)),
	}

	var sumAttend, sumFinal float64
	for _, rec := range recs {
		sumAttend += rec.Attendance
		sumFinal += rec.FinalScore
		out.Subjects = append(out.Subjects, SubjectStanding{
			SubjectID:   rec.SubjectID,
			FinalScore:  rec.FinalScore,
			Attendance:  rec.Attendance,
			Grade:       rec.Grade,
			Risk:        rec.Risk,
			Probability: s.probabilityOrNil(rec),
			Suggestion:  risk.ImprovementSuggestion(rec.FinalScore),
		})
	}

	n := float64(len(recs))
	overall, err := risk.OverallRisk(sumAttend/n, sumFinal/n)
	if err != nil {
		return nil, err
	}
	out.AvgAttendance = risk.Round(sumAttend/n, 1)
	out.AvgFinal = risk.Round(sumFinal/n, 1)
	out.Overall = overall
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, subjectID contracts.SubjectID, period string) {
	if err := s.cache.Delete(ctx, redis.RiskSummaryKey(int64(subjectID), period)); err != nil {
		s.log.WithError(err).Warn("Summary cache invalidation failed")
	}
}
