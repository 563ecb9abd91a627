package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

type pairKey struct {
	a, b string
}

// memData is everything the in-memory store holds. It is cloned at the start
// of every transaction so a failed transaction can be undone.
type memData struct {
	clients       map[string]model.Client
	events        map[string]model.Event
	services      map[string]model.Service
	eventServices map[pairKey]model.EventService
	visits        map[string]model.Visit
	visitIndex    map[pairKey]string
	visitServices map[string]model.VisitService
	stats         map[pairKey]int64
	pins          []string
}

func (d *memData) clone() *memData {
	return &memData{
		clients:       maps.Clone(d.clients),
		events:        maps.Clone(d.events),
		services:      maps.Clone(d.services),
		eventServices: maps.Clone(d.eventServices),
		visits:        maps.Clone(d.visits),
		visitIndex:    maps.Clone(d.visitIndex),
		visitServices: maps.Clone(d.visitServices),
		stats:         maps.Clone(d.stats),
		pins:          slices.Clone(d.pins),
	}
}

// MemoryStore is a Store backed by maps. Transactions are serialised by a
// single mutex; it is meant for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			clients:       make(map[string]model.Client),
			events:        make(map[string]model.Event),
			services:      make(map[string]model.Service),
			eventServices: make(map[pairKey]model.EventService),
			visits:        make(map[string]model.Visit),
			visitIndex:    make(map[pairKey]string),
			visitServices: make(map[string]model.VisitService),
			stats:         make(map[pairKey]int64),
		},
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// InTx runs fn while holding the write lock and restores the previous state
// if fn fails or ctx is cancelled before it returns.
func (s *MemoryStore) InTx(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	err := fn(&memTx{d: s.data})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) CreateClient(ctx context.Context, c *model.Client) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.data.clients[c.ID] = *c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ActiveEvent(ctx context.Context) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Event
	for _, e := range s.data.events {
		if !e.IsActive {
			continue
		}
		if best == nil || e.Date.After(best.Date) || (e.Date.Equal(best.Date) && e.ID < best.ID) {
			best = &e
		}
	}
	if best == nil {
		return nil, ErrNoActiveEvent
	}
	return best, nil
}

func (s *MemoryStore) CheckedInRoster(ctx context.Context, eventID string) ([]model.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roster := []model.RosterEntry{}
	for _, v := range s.data.visits {
		if v.EventID != eventID || v.Status != model.VisitCheckedIn {
			continue
		}
		c := s.data.clients[v.ClientID]
		r := model.RosterEntry{
			VisitID:          v.ID,
			ClientID:         c.ID,
			FirstName:        c.FirstName,
			LastName:         c.LastName,
			DateOfBirth:      c.DateOfBirth,
			NeedsInterpreter: c.NeedsInterpreter,
		}
		if v.EnteredWaitingRoom != nil {
			r.EnteredWaitingRoom = *v.EnteredWaitingRoom
		}
		roster = append(roster, r)
	}
	slices.SortFunc(roster, func(a, b model.RosterEntry) int {
		if c := b.EnteredWaitingRoom.Compare(a.EnteredWaitingRoom); c != 0 {
			return c
		}
		return strings.Compare(a.VisitID, b.VisitID)
	})
	return roster, nil
}

func (s *MemoryStore) FetchPendingQueueRows(ctx context.Context, eventID string) ([]model.PendingQueueRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PendingQueueRow
	for _, vs := range s.data.visitServices {
		if vs.Status != model.ServicePending {
			continue
		}
		v, ok := s.data.visits[vs.VisitID]
		if !ok || v.EventID != eventID || v.FirstCheckedIn == nil {
			continue
		}
		c := s.data.clients[v.ClientID]
		capacity, ok := s.data.eventServices[pairKey{eventID, vs.ServiceID}]
		if !ok {
			capacity = model.EventService{EventID: eventID, ServiceID: vs.ServiceID, IsClosed: true}
		}
		capacity.ServiceName = s.data.services[vs.ServiceID].Name
		out = append(out, model.PendingQueueRow{
			VisitServiceID:     vs.ID,
			VisitID:            v.ID,
			ClientID:           c.ID,
			FirstName:          c.FirstName,
			LastName:           c.LastName,
			DateOfBirth:        c.DateOfBirth,
			ServiceID:          vs.ServiceID,
			ServiceName:        capacity.ServiceName,
			QueuedAt:           vs.QueuedAt,
			FirstCheckedIn:     v.FirstCheckedIn,
			EnteredWaitingRoom: v.EnteredWaitingRoom,
			Capacity:           capacity,
		})
	}
	slices.SortFunc(out, func(a, b model.PendingQueueRow) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.VisitServiceID, b.VisitServiceID)
	})
	return out, nil
}

func (s *MemoryStore) ActivePINHashes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.pins), nil
}

// Seeding and inspection helpers for the development seed and tests.

// AddEvent stores an event, replacing any event with the same id.
func (s *MemoryStore) AddEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events[e.ID] = e
}

// AddService stores a service definition.
func (s *MemoryStore) AddService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.services[svc.ID] = svc
}

// SetEventService offers a service at an event with the given capacity state.
func (s *MemoryStore) SetEventService(es model.EventService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if es.ServiceName == "" {
		es.ServiceName = s.data.services[es.ServiceID].Name
	}
	s.data.eventServices[pairKey{es.EventID, es.ServiceID}] = es
}

// AddPINHash registers an active bcrypt PIN hash.
func (s *MemoryStore) AddPINHash(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.pins = append(s.data.pins, hash)
}

// Visit returns the visit of a client at an event.
func (s *MemoryStore) Visit(clientID, eventID string) (model.Visit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.visitIndex[pairKey{clientID, eventID}]
	if !ok {
		return model.Visit{}, false
	}
	return s.data.visits[id], true
}

// VisitServices returns every service row of a visit, oldest first.
func (s *MemoryStore) VisitServices(visitID string) []model.VisitService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&memTx{d: s.data}).visitServicesOf(visitID)
}

// EventService returns the capacity state of a service at an event.
func (s *MemoryStore) EventService(eventID, serviceID string) (model.EventService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	es, ok := s.data.eventServices[pairKey{eventID, serviceID}]
	return es, ok
}

// Stat returns the current value of an event counter.
func (s *MemoryStore) Stat(eventID, stat string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.stats[pairKey{eventID, stat}]
}

// memTx mutates memData directly; MemoryStore.InTx holds the lock.
type memTx struct {
	d *memData
}

func (t *memTx) SetNeedsInterpreter(ctx context.Context, clientID string, needs bool) error {
	c, ok := t.d.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	c.NeedsInterpreter = needs
	t.d.clients[clientID] = c
	return nil
}

func (t *memTx) UpsertVisit(ctx context.Context, clientID, eventID string, at time.Time) (*model.Visit, bool, error) {
	at = at.UTC()
	key := pairKey{clientID, eventID}

	var v model.Visit
	if id, ok := t.d.visitIndex[key]; ok {
		v = t.d.visits[id]
	} else {
		v = model.Visit{ID: uuid.New().String(), ClientID: clientID, EventID: eventID}
		t.d.visitIndex[key] = v.ID
	}

	first := v.FirstCheckedIn == nil
	if first {
		v.FirstCheckedIn = &at
	}
	v.EnteredWaitingRoom = &at
	v.Status = model.VisitCheckedIn
	t.d.visits[v.ID] = v
	return &v, first, nil
}

func (t *memTx) LockEventServices(ctx context.Context, eventID string, serviceIDs []string) (map[string]model.EventService, error) {
	out := make(map[string]model.EventService, len(serviceIDs))
	for _, id := range serviceIDs {
		if es, ok := t.d.eventServices[pairKey{eventID, id}]; ok {
			out[id] = es
		}
	}
	return out, nil
}

func (t *memTx) visitServicesOf(visitID string) []model.VisitService {
	var out []model.VisitService
	for _, vs := range t.d.visitServices {
		if vs.VisitID == visitID {
			out = append(out, vs)
		}
	}
	slices.SortFunc(out, func(a, b model.VisitService) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (t *memTx) ListVisitServices(ctx context.Context, visitID string) ([]model.VisitService, error) {
	return t.visitServicesOf(visitID), nil
}

func (t *memTx) DeletePendingServices(ctx context.Context, visitID string, keep []string) ([]string, error) {
	var ids []string
	for _, vs := range t.visitServicesOf(visitID) {
		if vs.Status != model.ServicePending || slices.Contains(keep, vs.ServiceID) {
			continue
		}
		delete(t.d.visitServices, vs.ID)
		ids = append(ids, vs.ServiceID)
	}
	return ids, nil
}

func (t *memTx) InsertVisitService(ctx context.Context, visitID, serviceID string, at time.Time) (*model.VisitService, error) {
	for _, vs := range t.d.visitServices {
		if vs.VisitID == visitID && vs.ServiceID == serviceID {
			return nil, ErrConflict
		}
	}
	vs := model.VisitService{
		ID:        uuid.New().String(),
		VisitID:   visitID,
		ServiceID: serviceID,
		Status:    model.ServicePending,
		QueuedAt:  at.UTC(),
	}
	t.d.visitServices[vs.ID] = vs
	return &vs, nil
}

func (t *memTx) AdjustAssigned(ctx context.Context, eventID, serviceID string, delta int) error {
	key := pairKey{eventID, serviceID}
	es, ok := t.d.eventServices[key]
	if !ok {
		return nil
	}
	es.CurrentAssigned = max(es.CurrentAssigned+delta, 0)
	t.d.eventServices[key] = es
	return nil
}

func (t *memTx) IncrementStat(ctx context.Context, eventID, stat string) (int64, error) {
	key := pairKey{eventID, stat}
	t.d.stats[key]++
	return t.d.stats[key], nil
}

func (t *memTx) LockVisitService(ctx context.Context, id string) (*model.VisitService, string, error) {
	vs, ok := t.d.visitServices[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	return &vs, t.d.visits[vs.VisitID].EventID, nil
}

func (t *memTx) SetVisitServiceStatus(ctx context.Context, id string, status model.ServiceStatus) error {
	vs, ok := t.d.visitServices[id]
	if !ok {
		return ErrNotFound
	}
	vs.Status = status
	t.d.visitServices[id] = vs
	return nil
}

func (t *memTx) CountOpenServices(ctx context.Context, visitID string) (int, error) {
	n := 0
	for _, vs := range t.d.visitServices {
		if vs.VisitID == visitID && vs.Status != model.ServiceCompleted {
			n++
		}
	}
	return n, nil
}

func (t *memTx) SetVisitStatus(ctx context.Context, visitID string, status model.VisitStatus) error {
	v, ok := t.d.visits[visitID]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	t.d.visits[visitID] = v
	return nil
}
