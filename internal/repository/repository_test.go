package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresStore_UpsertVisitReportsFirstCheckIn(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 0, 0, 123456789, time.UTC)
	stored := at.Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)INSERT INTO visits .*ON CONFLICT \\(client_id, event_id\\) DO UPDATE.*COALESCE\\(visits.first_checked_in").
		WithArgs(pgxmock.AnyArg(), "client-1", "event-1", stored, "CheckedIn").
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "event_id", "status", "first_checked_in", "entered_waiting_room", "first"}).
			AddRow("visit-1", "client-1", "event-1", "CheckedIn", &stored, &stored, true))
	mock.ExpectCommit()

	var (
		visit *model.Visit
		first bool
	)
	err := store.InTx(ctx, func(tx Tx) error {
		var err error
		visit, first, err = tx.UpsertVisit(ctx, "client-1", "event-1", at)
		return err
	})

	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, "visit-1", visit.ID)
	assert.Equal(t, model.VisitCheckedIn, visit.Status)
	require.NotNil(t, visit.FirstCheckedIn)
	assert.True(t, visit.FirstCheckedIn.Equal(stored))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE clients SET needs_interpreter").
		WithArgs("client-1", true).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.InTx(ctx, func(tx Tx) error {
		return tx.SetNeedsInterpreter(ctx, "client-1", true)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetNeedsInterpreterMissingClient(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE clients SET needs_interpreter").
		WithArgs("ghost", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.InTx(ctx, func(tx Tx) error {
		return tx.SetNeedsInterpreter(ctx, "ghost", false)
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LockEventServicesAndIncrementStat(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	capacity := 20
	requested := []string{"svc-medical", "svc-dental", "svc-xray"}

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)SELECT es.service_id, s.name, es.max_capacity.*service_id = ANY\\(\\$2\\).*ORDER BY es.service_id.*FOR UPDATE OF es").
		WithArgs("event-1", []string{"svc-dental", "svc-medical", "svc-xray"}).
		WillReturnRows(pgxmock.NewRows([]string{"service_id", "name", "max_capacity", "current_assigned", "is_closed"}).
			AddRow("svc-dental", "dental", &capacity, 7, false).
			AddRow("svc-medical", "medical", (*int)(nil), 0, true))
	mock.ExpectExec("(?s)UPDATE event_services.*GREATEST\\(current_assigned \\+ \\$3, 0\\)").
		WithArgs("event-1", "svc-dental", 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("(?s)INSERT INTO event_stats.*value = event_stats.value \\+ 1.*RETURNING value").
		WithArgs("event-1", model.StatClientsProcessed).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(int64(42)))
	mock.ExpectCommit()

	var (
		locked    map[string]model.EventService
		processed int64
	)
	err := store.InTx(ctx, func(tx Tx) error {
		var err error
		if locked, err = tx.LockEventServices(ctx, "event-1", requested); err != nil {
			return err
		}
		if err = tx.AdjustAssigned(ctx, "event-1", "svc-dental", 1); err != nil {
			return err
		}
		processed, err = tx.IncrementStat(ctx, "event-1", model.StatClientsProcessed)
		return err
	})

	require.NoError(t, err)
	require.Len(t, locked, 2)
	dental := locked["svc-dental"]
	assert.Equal(t, "dental", dental.ServiceName)
	assert.Equal(t, "event-1", dental.EventID)
	require.NotNil(t, dental.MaxCapacity)
	assert.Equal(t, 20, *dental.MaxCapacity)
	assert.Equal(t, 7, dental.CurrentAssigned)
	assert.True(t, locked["svc-medical"].IsClosed)
	assert.Nil(t, locked["svc-medical"].MaxCapacity)
	assert.NotContains(t, locked, "svc-xray")
	assert.Equal(t, []string{"svc-medical", "svc-dental", "svc-xray"}, requested, "caller's slice is not reordered")
	assert.Equal(t, int64(42), processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LockEventServicesSameOrderForAnyRequestOrder(t *testing.T) {
	for _, requested := range [][]string{
		{"svc-medical", "svc-dental"},
		{"svc-dental", "svc-medical"},
	} {
		store, mock := newMockStore(t)
		ctx := context.Background()

		mock.ExpectBegin()
		mock.ExpectQuery("(?s)FROM event_services es.*ORDER BY es.service_id.*FOR UPDATE OF es").
			WithArgs("event-1", []string{"svc-dental", "svc-medical"}).
			WillReturnRows(pgxmock.NewRows([]string{"service_id", "name", "max_capacity", "current_assigned", "is_closed"}))
		mock.ExpectCommit()

		err := store.InTx(ctx, func(tx Tx) error {
			_, err := tx.LockEventServices(ctx, "event-1", requested)
			return err
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet(), "request order %v", requested)
	}
}

func TestPostgresStore_LockEventServicesNothingRequested(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()

	var locked map[string]model.EventService
	err := store.InTx(ctx, func(tx Tx) error {
		var err error
		locked, err = tx.LockEventServices(ctx, "event-1", nil)
		return err
	})

	require.NoError(t, err)
	assert.Empty(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeletePendingServicesKeepsRequested(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("(?s)DELETE FROM visit_services.*NOT \\(service_id = ANY\\(\\$3\\)\\).*RETURNING service_id").
		WithArgs("visit-1", "Pending", []string{"svc-medical"}).
		WillReturnRows(pgxmock.NewRows([]string{"service_id"}).AddRow("svc-dental"))
	mock.ExpectQuery("(?s)DELETE FROM visit_services.*RETURNING service_id").
		WithArgs("visit-2", "Pending", []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"service_id"}).AddRow("svc-optical").AddRow("svc-haircut"))
	mock.ExpectCommit()

	var kept, all []string
	err := store.InTx(ctx, func(tx Tx) error {
		var err error
		if kept, err = tx.DeletePendingServices(ctx, "visit-1", []string{"svc-medical"}); err != nil {
			return err
		}
		all, err = tx.DeletePendingServices(ctx, "visit-2", nil)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"svc-dental"}, kept)
	assert.Equal(t, []string{"svc-optical", "svc-haircut"}, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveEvent(t *testing.T) {
	store, mock := newMockStore(t)
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("(?s)SELECT id, event_date, location, is_active.*WHERE is_active").
		WillReturnRows(pgxmock.NewRows([]string{"id", "event_date", "location", "is_active"}).
			AddRow("event-1", date, "Community Hall", true))

	event, err := store.ActiveEvent(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "event-1", event.ID)
	assert.Equal(t, "Community Hall", event.Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_NoActiveEvent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("(?s)SELECT id, event_date, location, is_active").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ActiveEvent(context.Background())

	assert.ErrorIs(t, err, ErrNoActiveEvent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClientNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetClient(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateClientConflict(t *testing.T) {
	store, mock := newMockStore(t)
	dob := time.Date(1980, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO clients").
		WithArgs(pgxmock.AnyArg(), "Ada", "", "Lovelace", dob, false, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "clients_pkey"})

	err := store.CreateClient(context.Background(), &model.Client{FirstName: "Ada", LastName: "Lovelace", DateOfBirth: dob})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActivePINHashes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT pin_hash FROM pin_codes WHERE active").
		WillReturnRows(pgxmock.NewRows([]string{"pin_hash"}).AddRow("$2a$10$abc").AddRow("$2a$10$def"))

	hashes, err := store.ActivePINHashes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"$2a$10$abc", "$2a$10$def"}, hashes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
