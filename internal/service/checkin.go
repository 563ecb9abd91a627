// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/queue"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

var checkInTracer = otel.Tracer("clinic.internal.service.checkin")

// ActiveEventProvider resolves the event check-ins and dashboards are scoped to.
type ActiveEventProvider interface {
	ActiveEvent(ctx context.Context) (*model.Event, error)
}

// SelectionPolicy decides what happens to a visit's pending selections when
// the client checks in again.
type SelectionPolicy int

const (
	// ReplacePendingSelections drops the visit's pending rows and queues the
	// new list from scratch.
	ReplacePendingSelections SelectionPolicy = iota
	// AppendNewSelections keeps existing rows and queues only services the
	// visit does not have yet.
	AppendNewSelections
)

func (p SelectionPolicy) String() string {
	if p == AppendNewSelections {
		return "append"
	}
	return "replace"
}

// ParseSelectionPolicy maps a config value to a SelectionPolicy. Empty selects replace.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return ReplacePendingSelections, nil
	case "append":
		return AppendNewSelections, nil
	}
	return ReplacePendingSelections, fmt.Errorf("unknown selection policy %q", s)
}

// CheckInService moves clients into the waiting room of the active event.
type CheckInService struct {
	store   repository.Store
	events  ActiveEventProvider
	gate    queue.Gate
	policy  SelectionPolicy
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// CheckInOption customises a CheckInService.
type CheckInOption func(*CheckInService)

// WithActiveEventProvider overrides the store as the source of the active event.
func WithActiveEventProvider(p ActiveEventProvider) CheckInOption {
	return func(s *CheckInService) { s.events = p }
}

// WithGate sets the admission gate.
func WithGate(g queue.Gate) CheckInOption {
	return func(s *CheckInService) { s.gate = g }
}

// WithSelectionPolicy sets how re-check-ins treat pending selections.
func WithSelectionPolicy(p SelectionPolicy) CheckInOption {
	return func(s *CheckInService) { s.policy = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CheckInOption {
	return func(s *CheckInService) { s.now = now }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.ClinicMetrics) CheckInOption {
	return func(s *CheckInService) { s.metrics = m }
}

// NewCheckInService constructs a CheckInService. The store doubles as the
// active event provider unless WithActiveEventProvider is given.
func NewCheckInService(store repository.Store, logger *logging.Logger, opts ...CheckInOption) *CheckInService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &CheckInService{
		store:  store,
		events: store,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn records the client's arrival at the active event and queues the
// requested services. Steps run in one transaction; a failure leaves nothing
// behind and the caller may retry.
func (s *CheckInService) CheckIn(ctx context.Context, req model.CheckInRequest) (result *model.CheckInResult, err error) {
	started := time.Now()
	ctx, span := checkInTracer.Start(ctx, "checkin.CheckIn")
	defer span.End()
	defer func() {
		outcome := "error"
		if err == nil {
			outcome = "repeat"
			if result.FirstCheckIn {
				outcome = "first"
			}
		}
		s.metrics.ObserveCheckIn(outcome, time.Since(started).Seconds())
	}()

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, invalid("client_id", "is required")
	}
	services := normalizeServices(req.Services)
	if len(services) == 0 {
		return nil, invalid("services", "at least one service is required")
	}
	span.SetAttributes(
		attribute.String("clinic.client_id", clientID),
		attribute.Int("clinic.services_requested", len(services)),
	)

	event, err := s.events.ActiveEvent(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNoActiveEvent) {
			recordError(span, err)
			err = fmt.Errorf("resolve active event: %w", err)
		}
		return nil, err
	}
	if _, err := s.store.GetClient(ctx, clientID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			recordError(span, err)
			err = fmt.Errorf("get client: %w", err)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.event_id", event.ID))

	now := s.now().UTC()
	res := &model.CheckInResult{Accepted: []string{}, Rejected: []model.Rejection{}}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		if req.NeedsInterpreter != nil {
			if err := tx.SetNeedsInterpreter(ctx, clientID, *req.NeedsInterpreter); err != nil {
				return err
			}
		}

		visit, first, err := tx.UpsertVisit(ctx, clientID, event.ID, now)
		if err != nil {
			return err
		}
		res.VisitID = visit.ID
		res.FirstCheckIn = first

		if err := s.admit(ctx, tx, event.ID, visit.ID, services, now, res); err != nil {
			return err
		}

		res.ClientsProcessed, err = tx.IncrementStat(ctx, event.ID, model.StatClientsProcessed)
		return err
	})
	if err != nil {
		recordError(span, err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("check-in failed", "client_id", clientID, "event_id", event.ID, "error", err)
		return nil, fmt.Errorf("check in client: %w", err)
	}

	roster, err := s.store.CheckedInRoster(ctx, event.ID)
	if err != nil {
		// The check-in is committed; answer without the roster.
		s.logger.Warn("load checked-in roster", "event_id", event.ID, "error", err)
		roster = []model.RosterEntry{}
	}
	res.CheckedIn = roster

	span.SetAttributes(
		attribute.Bool("clinic.first_check_in", res.FirstCheckIn),
		attribute.Int("clinic.services_accepted", len(res.Accepted)),
	)
	s.logger.Info("client checked in",
		"client_id", clientID,
		"event_id", event.ID,
		"visit_id", res.VisitID,
		"first_check_in", res.FirstCheckIn,
		"accepted", res.Accepted,
		"rejected", len(res.Rejected),
	)
	return res, nil
}

// admit applies the selection policy and the gate to each requested service.
// A service the visit already has Pending stays queued with its original
// queued-at and skips the gate. Every event service row that may change is
// locked up front in one statement, in service id order.
func (s *CheckInService) admit(ctx context.Context, tx repository.Tx, eventID, visitID string, services []string, now time.Time, res *model.CheckInResult) error {
	existing, err := tx.ListVisitServices(ctx, visitID)
	if err != nil {
		return err
	}
	present := make(map[string]model.ServiceStatus, len(existing))
	for _, vs := range existing {
		present[vs.ServiceID] = vs.Status
	}

	var stale, toLock []string
	if s.policy == ReplacePendingSelections {
		for _, vs := range existing {
			if vs.Status == model.ServicePending && !slices.Contains(services, vs.ServiceID) {
				stale = append(stale, vs.ServiceID)
			}
		}
	}
	toLock = append(toLock, stale...)
	for _, serviceID := range services {
		if _, ok := present[serviceID]; !ok {
			toLock = append(toLock, serviceID)
		}
	}

	locked, err := tx.LockEventServices(ctx, eventID, toLock)
	if err != nil {
		return err
	}

	if len(stale) > 0 {
		removed, err := tx.DeletePendingServices(ctx, visitID, services)
		if err != nil {
			return err
		}
		for _, serviceID := range removed {
			if err := tx.AdjustAssigned(ctx, eventID, serviceID, -1); err != nil {
				return err
			}
		}
	}

	for _, serviceID := range services {
		if status, ok := present[serviceID]; ok {
			if status == model.ServicePending {
				res.Accepted = append(res.Accepted, serviceID)
			} else {
				res.Rejected = append(res.Rejected, model.Rejection{ServiceID: serviceID, Reason: queue.ReasonAlreadyQueued})
			}
			continue
		}

		es, ok := locked[serviceID]
		if !ok {
			s.metrics.ObserveAdmission(serviceID, queue.ReasonUnavailable)
			res.Rejected = append(res.Rejected, model.Rejection{ServiceID: serviceID, Reason: queue.ReasonUnavailable})
			continue
		}

		decision := s.gate.Admit(es)
		if !decision.Admitted {
			s.metrics.ObserveAdmission(serviceID, decision.Reason)
			res.Rejected = append(res.Rejected, model.Rejection{ServiceID: serviceID, Reason: decision.Reason})
			continue
		}

		if _, err := tx.InsertVisitService(ctx, visitID, serviceID, now); err != nil {
			return err
		}
		if err := tx.AdjustAssigned(ctx, eventID, serviceID, 1); err != nil {
			return err
		}
		s.metrics.ObserveAdmission(serviceID, "admitted")
		res.Accepted = append(res.Accepted, serviceID)
	}
	return nil
}

// normalizeServices trims, drops blanks and removes duplicates, keeping order.
func normalizeServices(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
