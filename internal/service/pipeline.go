package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

// transitions lists the allowed status changes of a visit service.
var transitions = map[model.ServiceStatus][]model.ServiceStatus{
	model.ServicePending:    {model.ServiceInProgress, model.ServiceCompleted},
	model.ServiceInProgress: {model.ServiceCompleted, model.ServicePending},
}

func allowed(from, to model.ServiceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PipelineService moves queued services through InProgress to Completed.
type PipelineService struct {
	store   repository.Store
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// NewPipelineService constructs a PipelineService.
func NewPipelineService(store repository.Store, m *metrics.ClinicMetrics, logger *logging.Logger) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{store: store, logger: logger, metrics: m}
}

// Advance changes the status of one visit service. Completing a service frees
// its capacity slot; completing the last open service completes the visit.
func (s *PipelineService) Advance(ctx context.Context, visitServiceID string, to model.ServiceStatus) (*model.VisitService, error) {
	if visitServiceID == "" {
		return nil, invalid("id", "is required")
	}
	if !to.Valid() {
		return nil, invalid("status", "unknown status %q", to)
	}

	var (
		updated model.VisitService
		from    model.ServiceStatus
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		vs, eventID, err := tx.LockVisitService(ctx, visitServiceID)
		if err != nil {
			return err
		}
		from = vs.Status
		if !allowed(from, to) {
			return invalid("status", "cannot move from %s to %s", from, to)
		}
		if err := tx.SetVisitServiceStatus(ctx, vs.ID, to); err != nil {
			return err
		}
		vs.Status = to
		updated = *vs

		if to != model.ServiceCompleted {
			return nil
		}
		if err := tx.AdjustAssigned(ctx, eventID, vs.ServiceID, -1); err != nil {
			return err
		}
		open, err := tx.CountOpenServices(ctx, vs.VisitID)
		if err != nil {
			return err
		}
		if open == 0 {
			return tx.SetVisitStatus(ctx, vs.VisitID, model.VisitCompleted)
		}
		return nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("advance visit service failed", "visit_service_id", visitServiceID, "error", err)
		return nil, fmt.Errorf("advance visit service: %w", err)
	}

	s.metrics.ObserveTransition(string(from), string(to))
	s.logger.Info("visit service advanced", "visit_service_id", visitServiceID, "from", from, "to", to)
	return &updated, nil
}
