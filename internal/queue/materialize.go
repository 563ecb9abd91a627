package queue

import (
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

// DefaultWaitListLimit bounds the wait list. It is a safety limit, not a
// business rule.
const DefaultWaitListLimit = 500

// aggregate folds every pending row of one client into a single entry.
type aggregate struct {
	entry      model.QueueEntry
	firstRowID string
}

func (a *aggregate) add(r model.PendingQueueRow, b Breakdown) {
	if len(a.entry.Services) == 0 {
		a.entry = model.QueueEntry{
			ClientID:       r.ClientID,
			VisitID:        r.VisitID,
			FirstName:      r.FirstName,
			LastName:       r.LastName,
			DateOfBirth:    r.DateOfBirth,
			Score:          b.Score,
			WaitMinutes:    b.WaitMinutes,
			ArrivalMinutes: b.ArrivalMinutes,
			QueuedAt:       r.QueuedAt,
		}
		a.firstRowID = r.VisitServiceID
	} else {
		if b.Score > a.entry.Score {
			a.entry.VisitID = r.VisitID
			a.entry.Score = b.Score
			a.entry.WaitMinutes = b.WaitMinutes
			a.entry.ArrivalMinutes = b.ArrivalMinutes
		}
		if r.QueuedAt.Before(a.entry.QueuedAt) {
			a.entry.QueuedAt = r.QueuedAt
		}
		if r.VisitServiceID < a.firstRowID {
			a.firstRowID = r.VisitServiceID
		}
	}
	a.entry.Services = append(a.entry.Services, r.ServiceName)
}

// ahead orders by score desc, then oldest queued-at, then smallest row id.
func ahead(a, b *aggregate) bool {
	if a.entry.Score != b.entry.Score {
		return a.entry.Score > b.entry.Score
	}
	if !a.entry.QueuedAt.Equal(b.entry.QueuedAt) {
		return a.entry.QueuedAt.Before(b.entry.QueuedAt)
	}
	return a.firstRowID < b.firstRowID
}

func compare(a, b *aggregate) int {
	switch {
	case ahead(a, b):
		return -1
	case ahead(b, a):
		return 1
	}
	return 0
}

// Materialize builds the Now Serving and Wait List views from pending rows.
//
// Now Serving holds the highest-ranked client among rows whose service is
// currently servable; its entry lists only those servable services. The Wait
// List holds every other client, closed services included, one entry per
// client, capped at limit. The Now Serving client is never also on the Wait
// List, so any of its rows at closed services stay hidden until it leaves Now
// Serving.
func Materialize(rows []model.PendingQueueRow, now time.Time, gate Gate, limit int) model.QueueView {
	if limit <= 0 {
		limit = DefaultWaitListLimit
	}

	sorted := make([]model.PendingQueueRow, 0, len(rows))
	for _, r := range rows {
		if r.FirstCheckedIn == nil {
			continue
		}
		sorted = append(sorted, r)
	}
	slices.SortStableFunc(sorted, func(a, b model.PendingQueueRow) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.VisitServiceID, b.VisitServiceID)
	})

	servable := map[string]*aggregate{}
	everyone := map[string]*aggregate{}
	var order []string
	for _, r := range sorted {
		entered := *r.FirstCheckedIn
		if r.EnteredWaitingRoom != nil {
			entered = *r.EnteredWaitingRoom
		}
		b := Score(*r.FirstCheckedIn, entered, now)

		all, ok := everyone[r.ClientID]
		if !ok {
			all = &aggregate{}
			everyone[r.ClientID] = all
			order = append(order, r.ClientID)
		}
		all.add(r, b)

		if gate.Serving(r.Capacity) {
			s, ok := servable[r.ClientID]
			if !ok {
				s = &aggregate{}
				servable[r.ClientID] = s
			}
			s.add(r, b)
		}
	}

	view := model.QueueView{
		NowServing: []model.QueueEntry{},
		WaitList:   []model.QueueEntry{},
		ComputedAt: now,
	}

	var best *aggregate
	for _, id := range order {
		s, ok := servable[id]
		if !ok {
			continue
		}
		if best == nil || ahead(s, best) {
			best = s
		}
	}
	if best != nil {
		view.NowServing = append(view.NowServing, best.entry)
	}

	waiting := make([]*aggregate, 0, len(order))
	for _, id := range order {
		if best != nil && id == best.entry.ClientID {
			continue
		}
		waiting = append(waiting, everyone[id])
	}
	slices.SortStableFunc(waiting, compare)
	if len(waiting) > limit {
		waiting = waiting[:limit]
	}
	for _, a := range waiting {
		view.WaitList = append(view.WaitList, a.entry)
	}
	return view
}
