// Package repository implements all database queries for the check-in system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

// DB is the subset of *pgxpool.Pool the store needs. pgxmock satisfies it too.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists clients, visits and queue state in PostgreSQL.
type PostgresStore struct {
	db DB
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("repository: pgx pool required")
	}
	return &PostgresStore{db: db}
}

// Ping checks the connection pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// InTx runs fn inside a single transaction. The transaction is rolled back
// when fn returns an error or the context is cancelled mid-flight.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetClient returns a single client or ErrNotFound.
func (s *PostgresStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var c model.Client
	err := s.db.QueryRow(ctx,
		`SELECT id, first_name, middle_name, last_name, date_of_birth, needs_interpreter, created_at
		 FROM clients WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.FirstName, &c.MiddleName, &c.LastName, &c.DateOfBirth, &c.NeedsInterpreter, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// CreateClient inserts a client, assigning its id and creation time.
func (s *PostgresStore) CreateClient(ctx context.Context, c *model.Client) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`INSERT INTO clients (id, first_name, middle_name, last_name, date_of_birth, needs_interpreter, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.FirstName, c.MiddleName, c.LastName, c.DateOfBirth, c.NeedsInterpreter, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", mapPgError(err))
	}
	return nil
}

// ActiveEvent returns the active event, or ErrNoActiveEvent. When more than
// one event is flagged active the most recent one wins.
func (s *PostgresStore) ActiveEvent(ctx context.Context) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		`SELECT id, event_date, location, is_active
		 FROM events
		 WHERE is_active
		 ORDER BY event_date DESC, id
		 LIMIT 1`,
	).Scan(&e.ID, &e.Date, &e.Location, &e.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveEvent
		}
		return nil, fmt.Errorf("active event: %w", err)
	}
	return &e, nil
}

// CheckedInRoster lists every client currently checked in for the event,
// most recent arrival first.
func (s *PostgresStore) CheckedInRoster(ctx context.Context, eventID string) ([]model.RosterEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT v.id, c.id, c.first_name, c.last_name, c.date_of_birth, c.needs_interpreter, v.entered_waiting_room
		 FROM visits v
		 JOIN clients c ON c.id = v.client_id
		 WHERE v.event_id = $1 AND v.status = $2
		 ORDER BY v.entered_waiting_room DESC, v.id`,
		eventID, string(model.VisitCheckedIn),
	)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	roster := []model.RosterEntry{}
	for rows.Next() {
		var r model.RosterEntry
		if err := rows.Scan(&r.VisitID, &r.ClientID, &r.FirstName, &r.LastName, &r.DateOfBirth, &r.NeedsInterpreter, &r.EnteredWaitingRoom); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		roster = append(roster, r)
	}
	return roster, rows.Err()
}

// FetchPendingQueueRows returns every Pending visit service of the event
// joined with its visit timestamps and the service's capacity flags.
// A service the event does not configure is reported as closed.
func (s *PostgresStore) FetchPendingQueueRows(ctx context.Context, eventID string) ([]model.PendingQueueRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT vs.id, vs.visit_id, v.client_id, c.first_name, c.last_name, c.date_of_birth,
		        vs.service_id, s.name, vs.queued_at, v.first_checked_in, v.entered_waiting_room,
		        COALESCE(es.is_closed, TRUE), es.max_capacity, COALESCE(es.current_assigned, 0)
		 FROM visit_services vs
		 JOIN visits v ON v.id = vs.visit_id
		 JOIN clients c ON c.id = v.client_id
		 JOIN services s ON s.id = vs.service_id
		 LEFT JOIN event_services es ON es.event_id = v.event_id AND es.service_id = vs.service_id
		 WHERE v.event_id = $1 AND vs.status = $2 AND v.first_checked_in IS NOT NULL
		 ORDER BY vs.queued_at, vs.id`,
		eventID, string(model.ServicePending),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch pending queue rows: %w", err)
	}
	defer rows.Close()

	var out []model.PendingQueueRow
	for rows.Next() {
		var r model.PendingQueueRow
		if err := rows.Scan(
			&r.VisitServiceID, &r.VisitID, &r.ClientID, &r.FirstName, &r.LastName, &r.DateOfBirth,
			&r.ServiceID, &r.ServiceName, &r.QueuedAt, &r.FirstCheckedIn, &r.EnteredWaitingRoom,
			&r.Capacity.IsClosed, &r.Capacity.MaxCapacity, &r.Capacity.CurrentAssigned,
		); err != nil {
			return nil, fmt.Errorf("scan pending queue row: %w", err)
		}
		r.Capacity.EventID = eventID
		r.Capacity.ServiceID = r.ServiceID
		r.Capacity.ServiceName = r.ServiceName
		out = append(out, r)
	}
	return out, rows.Err()
}

// ActivePINHashes returns the bcrypt hashes of every active PIN code.
func (s *PostgresStore) ActivePINHashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT pin_hash FROM pin_codes WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("list pin codes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan pin code: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// mapPgError turns unique-key violations into ErrConflict.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
