package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/queue"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

var queueTracer = otel.Tracer("clinic.internal.service.queue")

// QueueService builds the Now Serving and Wait List dashboard.
type QueueService struct {
	store   repository.Store
	events  ActiveEventProvider
	gate    queue.Gate
	limit   int
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// QueueConfig holds the tunables of the dashboard.
type QueueConfig struct {
	Gate          queue.Gate
	WaitListLimit int
	Events        ActiveEventProvider
	Clock         func() time.Time
	Metrics       *metrics.ClinicMetrics
}

// NewQueueService constructs a QueueService.
func NewQueueService(store repository.Store, cfg QueueConfig, logger *logging.Logger) *QueueService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &QueueService{
		store:   store,
		events:  cfg.Events,
		gate:    cfg.Gate,
		limit:   cfg.WaitListLimit,
		now:     cfg.Clock,
		logger:  logger,
		metrics: cfg.Metrics,
	}
	if s.events == nil {
		s.events = store
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.limit <= 0 {
		s.limit = queue.DefaultWaitListLimit
	}
	return s
}

// Snapshot scores every pending selection of the active event as of now.
// Nothing is cached; each call reads the store again.
func (s *QueueService) Snapshot(ctx context.Context) (*model.QueueView, error) {
	ctx, span := queueTracer.Start(ctx, "queue.Snapshot")
	defer span.End()

	event, err := s.events.ActiveEvent(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveEvent) {
			return nil, err
		}
		recordError(span, err)
		return nil, fmt.Errorf("resolve active event: %w", err)
	}

	rows, err := s.store.FetchPendingQueueRows(ctx, event.ID)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("fetch pending queue rows: %w", err)
	}

	view := queue.Materialize(rows, s.now().UTC(), s.gate, s.limit)
	view.EventID = event.ID

	span.SetAttributes(
		attribute.String("clinic.event_id", event.ID),
		attribute.Int("clinic.pending_rows", len(rows)),
		attribute.Int("clinic.wait_list", len(view.WaitList)),
	)
	s.metrics.SetWaiting(len(view.WaitList))
	s.logger.Debug("queue materialized", "event_id", event.ID, "rows", len(rows), "waiting", len(view.WaitList))
	return &view, nil
}
