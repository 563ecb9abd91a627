package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

const eventID = "event-1"

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func intPtr(n int) *int { return &n }

// newFixture seeds one active event offering medical and haircut (open),
// dental (closed) and optical (capacity 1).
func newFixture(t *testing.T) (*repository.MemoryStore, *testClock) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.AddEvent(model.Event{ID: eventID, Date: t0, Location: "Community Hall", IsActive: true})
	for _, name := range []string{"medical", "dental", "optical", "haircut"} {
		store.AddService(model.Service{ID: "svc-" + name, Name: name})
	}
	store.SetEventService(model.EventService{EventID: eventID, ServiceID: "svc-medical"})
	store.SetEventService(model.EventService{EventID: eventID, ServiceID: "svc-dental", IsClosed: true})
	store.SetEventService(model.EventService{EventID: eventID, ServiceID: "svc-optical", MaxCapacity: intPtr(1)})
	store.SetEventService(model.EventService{EventID: eventID, ServiceID: "svc-haircut"})
	return store, &testClock{now: t0}
}

func addClient(t *testing.T, store *repository.MemoryStore, first string) string {
	t.Helper()
	c := &model.Client{FirstName: first, LastName: "Doe", DateOfBirth: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateClient(context.Background(), c))
	return c.ID
}

func newCheckIn(store repository.Store, clock *testClock, opts ...CheckInOption) *CheckInService {
	opts = append([]CheckInOption{WithClock(clock.Now)}, opts...)
	return NewCheckInService(store, logging.Discard(), opts...)
}

func pendingServices(store *repository.MemoryStore, visitID string) []string {
	var out []string
	for _, vs := range store.VisitServices(visitID) {
		if vs.Status == model.ServicePending {
			out = append(out, vs.ServiceID)
		}
	}
	return out
}
