package audit

import (
	"context"
	"time"

	"github.com/wonny/acadport/backend/pkg/logger"
)

// Store persists run records. *Repository implements it.
type Store interface {
	SaveRun(ctx context.Context, rec *RunRecord) error
}

// Recorder writes allocation events to the run log. It is an
// allocation.Publisher; failures are logged and never reach the caller.
// ⭐ SSOT: 배정 실행 이력 기록은 여기서만
type Recorder struct {
	store      Store
	policyHash func() string
	timeout    time.Duration
	logger     *logger.Logger
}

// NewRecorder creates a recorder. policyHash may be nil.
func NewRecorder(store Store, policyHash func() string, log *logger.Logger) *Recorder {
	return &Recorder{
		store:      store,
		policyHash: policyHash,
		timeout:    5 * time.Second,
		logger:     log.WithComponent("audit"),
	}
}

// Publish records completed runs and resets; other events are ignored
func (r *Recorder) Publish(eventType string, payload interface{}) {
	rec, ok := recordFromEvent(eventType, payload)
	if !ok {
		return
	}
	if r.policyHash != nil {
		rec.PolicyHash = r.policyHash()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.SaveRun(ctx, rec); err != nil {
		r.logger.WithError(err).WithField("run_id", rec.RunID).Error("Failed to record allocation run")
		return
	}
	r.logger.WithFields(map[string]interface{}{
		"run_id": rec.RunID,
		"kind":   rec.Kind,
	}).Debug("Allocation run recorded")
}
