package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	q querier
}

func (t *pgTx) SetNeedsInterpreter(ctx context.Context, clientID string, needs bool) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE clients SET needs_interpreter = $2 WHERE id = $1`,
		clientID, needs,
	)
	if err != nil {
		return fmt.Errorf("update interpreter flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertVisit keeps the earliest first_checked_in and always refreshes
// entered_waiting_room. Postgres stores microseconds, so at is truncated
// before comparing it with the stored value.
func (t *pgTx) UpsertVisit(ctx context.Context, clientID, eventID string, at time.Time) (*model.Visit, bool, error) {
	at = at.UTC().Truncate(time.Microsecond)

	var (
		v      model.Visit
		status string
		first  bool
	)
	err := t.q.QueryRow(ctx,
		`INSERT INTO visits (id, client_id, event_id, status, first_checked_in, entered_waiting_room)
		 VALUES ($1, $2, $3, $5, $4, $4)
		 ON CONFLICT (client_id, event_id) DO UPDATE
		 SET first_checked_in     = COALESCE(visits.first_checked_in, EXCLUDED.first_checked_in),
		     entered_waiting_room = EXCLUDED.entered_waiting_room,
		     status               = EXCLUDED.status
		 RETURNING id, client_id, event_id, status, first_checked_in, entered_waiting_room,
		           first_checked_in = $4`,
		uuid.New().String(), clientID, eventID, at, string(model.VisitCheckedIn),
	).Scan(&v.ID, &v.ClientID, &v.EventID, &status, &v.FirstCheckedIn, &v.EnteredWaitingRoom, &first)
	if err != nil {
		return nil, false, fmt.Errorf("upsert visit: %w", mapPgError(err))
	}
	v.Status = model.VisitStatus(status)
	return &v, first, nil
}

func (t *pgTx) LockEventServices(ctx context.Context, eventID string, serviceIDs []string) (map[string]model.EventService, error) {
	out := make(map[string]model.EventService, len(serviceIDs))
	if len(serviceIDs) == 0 {
		return out, nil
	}
	ids := slices.Clone(serviceIDs)
	slices.Sort(ids)

	rows, err := t.q.Query(ctx,
		`SELECT es.service_id, s.name, es.max_capacity, es.current_assigned, es.is_closed
		 FROM event_services es
		 JOIN services s ON s.id = es.service_id
		 WHERE es.event_id = $1 AND es.service_id = ANY($2)
		 ORDER BY es.service_id
		 FOR UPDATE OF es`,
		eventID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock event services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		es := model.EventService{EventID: eventID}
		if err := rows.Scan(&es.ServiceID, &es.ServiceName, &es.MaxCapacity, &es.CurrentAssigned, &es.IsClosed); err != nil {
			return nil, fmt.Errorf("scan event service: %w", err)
		}
		out[es.ServiceID] = es
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock event services: %w", err)
	}
	return out, nil
}

func (t *pgTx) ListVisitServices(ctx context.Context, visitID string) ([]model.VisitService, error) {
	rows, err := t.q.Query(ctx,
		`SELECT id, visit_id, service_id, status, queued_at
		 FROM visit_services
		 WHERE visit_id = $1
		 ORDER BY queued_at, id`,
		visitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list visit services: %w", err)
	}
	defer rows.Close()

	var out []model.VisitService
	for rows.Next() {
		var (
			vs     model.VisitService
			status string
		)
		if err := rows.Scan(&vs.ID, &vs.VisitID, &vs.ServiceID, &status, &vs.QueuedAt); err != nil {
			return nil, fmt.Errorf("scan visit service: %w", err)
		}
		vs.Status = model.ServiceStatus(status)
		out = append(out, vs)
	}
	return out, rows.Err()
}

func (t *pgTx) DeletePendingServices(ctx context.Context, visitID string, keep []string) ([]string, error) {
	if keep == nil {
		keep = []string{}
	}
	rows, err := t.q.Query(ctx,
		`DELETE FROM visit_services
		 WHERE visit_id = $1 AND status = $2 AND NOT (service_id = ANY($3))
		 RETURNING service_id`,
		visitID, string(model.ServicePending), keep,
	)
	if err != nil {
		return nil, fmt.Errorf("delete pending services: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted service: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *pgTx) InsertVisitService(ctx context.Context, visitID, serviceID string, at time.Time) (*model.VisitService, error) {
	vs := &model.VisitService{
		ID:        uuid.New().String(),
		VisitID:   visitID,
		ServiceID: serviceID,
		Status:    model.ServicePending,
		QueuedAt:  at.UTC(),
	}
	_, err := t.q.Exec(ctx,
		`INSERT INTO visit_services (id, visit_id, service_id, status, queued_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		vs.ID, vs.VisitID, vs.ServiceID, string(vs.Status), vs.QueuedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert visit service: %w", mapPgError(err))
	}
	return vs, nil
}

// AdjustAssigned moves current_assigned by delta, never below zero.
func (t *pgTx) AdjustAssigned(ctx context.Context, eventID, serviceID string, delta int) error {
	_, err := t.q.Exec(ctx,
		`UPDATE event_services
		 SET current_assigned = GREATEST(current_assigned + $3, 0)
		 WHERE event_id = $1 AND service_id = $2`,
		eventID, serviceID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust assigned: %w", err)
	}
	return nil
}

func (t *pgTx) IncrementStat(ctx context.Context, eventID, stat string) (int64, error) {
	var value int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO event_stats (event_id, stat, value)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (event_id, stat) DO UPDATE
		 SET value = event_stats.value + 1
		 RETURNING value`,
		eventID, stat,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", stat, err)
	}
	return value, nil
}

func (t *pgTx) LockVisitService(ctx context.Context, id string) (*model.VisitService, string, error) {
	var (
		vs      model.VisitService
		status  string
		eventID string
	)
	err := t.q.QueryRow(ctx,
		`SELECT vs.id, vs.visit_id, vs.service_id, vs.status, vs.queued_at, v.event_id
		 FROM visit_services vs
		 JOIN visits v ON v.id = vs.visit_id
		 WHERE vs.id = $1
		 FOR UPDATE OF vs`,
		id,
	).Scan(&vs.ID, &vs.VisitID, &vs.ServiceID, &status, &vs.QueuedAt, &eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("lock visit service: %w", err)
	}
	vs.Status = model.ServiceStatus(status)
	return &vs, eventID, nil
}

func (t *pgTx) SetVisitServiceStatus(ctx context.Context, id string, status model.ServiceStatus) error {
	_, err := t.q.Exec(ctx,
		`UPDATE visit_services SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update visit service status: %w", err)
	}
	return nil
}

func (t *pgTx) CountOpenServices(ctx context.Context, visitID string) (int, error) {
	var n int
	err := t.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM visit_services
		 WHERE visit_id = $1 AND status IN ($2, $3)`,
		visitID, string(model.ServicePending), string(model.ServiceInProgress),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open services: %w", err)
	}
	return n, nil
}

func (t *pgTx) SetVisitStatus(ctx context.Context, visitID string, status model.VisitStatus) error {
	_, err := t.q.Exec(ctx,
		`UPDATE visits SET status = $2 WHERE id = $1`,
		visitID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update visit status: %w", err)
	}
	return nil
}
