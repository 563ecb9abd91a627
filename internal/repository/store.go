package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoActiveEvent is returned when no event is flagged active.
var ErrNoActiveEvent = errors.New("no active event")

// ErrConflict is returned when a unique key is violated.
var ErrConflict = errors.New("conflict")

// Tx is the set of writes a check-in or pipeline step performs atomically.
type Tx interface {
	SetNeedsInterpreter(ctx context.Context, clientID string, needs bool) error
	// UpsertVisit creates or refreshes the visit for (clientID, eventID) in a
	// single statement. The bool reports whether this call set FirstCheckedIn.
	UpsertVisit(ctx context.Context, clientID, eventID string, at time.Time) (*model.Visit, bool, error)
	// LockEventServices locks the event's rows for serviceIDs in service id
	// order and returns them keyed by service id. Services the event does not
	// offer are absent from the map.
	LockEventServices(ctx context.Context, eventID string, serviceIDs []string) (map[string]model.EventService, error)
	ListVisitServices(ctx context.Context, visitID string) ([]model.VisitService, error)
	// DeletePendingServices removes the visit's Pending rows whose service is
	// not in keep and returns the removed service ids.
	DeletePendingServices(ctx context.Context, visitID string, keep []string) ([]string, error)
	InsertVisitService(ctx context.Context, visitID, serviceID string, at time.Time) (*model.VisitService, error)
	AdjustAssigned(ctx context.Context, eventID, serviceID string, delta int) error
	IncrementStat(ctx context.Context, eventID, stat string) (int64, error)
	// LockVisitService returns the row and the event its visit belongs to.
	LockVisitService(ctx context.Context, id string) (*model.VisitService, string, error)
	SetVisitServiceStatus(ctx context.Context, id string, status model.ServiceStatus) error
	CountOpenServices(ctx context.Context, visitID string) (int, error)
	SetVisitStatus(ctx context.Context, visitID string, status model.VisitStatus) error
}

// Store is the visit record store used by the service layer.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	GetClient(ctx context.Context, id string) (*model.Client, error)
	CreateClient(ctx context.Context, c *model.Client) error
	ActiveEvent(ctx context.Context) (*model.Event, error)
	CheckedInRoster(ctx context.Context, eventID string) ([]model.RosterEntry, error)
	FetchPendingQueueRows(ctx context.Context, eventID string) ([]model.PendingQueueRow, error)
	ActivePINHashes(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
