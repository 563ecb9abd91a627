package model

import "time"

// PendingQueueRow is one Pending visit service joined with its visit's
// timestamps and its service's capacity state for the event.
type PendingQueueRow struct {
	VisitServiceID     string
	VisitID            string
	ClientID           string
	FirstName          string
	LastName           string
	DateOfBirth        time.Time
	ServiceID          string
	ServiceName        string
	QueuedAt           time.Time
	FirstCheckedIn     *time.Time
	EnteredWaitingRoom *time.Time
	Capacity           EventService
}

// QueueEntry is one client on the dashboard with every service they wait for.
type QueueEntry struct {
	ClientID       string    `json:"client_id"`
	VisitID        string    `json:"visit_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Services       []string  `json:"services"`
	Score          float64   `json:"score"`
	WaitMinutes    int64     `json:"wait_minutes"`
	ArrivalMinutes int64     `json:"arrival_minutes"`
	QueuedAt       time.Time `json:"queued_at"`
}

// QueueView is the dashboard: at most one client being served and the rest waiting.
type QueueView struct {
	EventID    string       `json:"event_id"`
	NowServing []QueueEntry `json:"now_serving"`
	WaitList   []QueueEntry `json:"wait_list"`
	ComputedAt time.Time    `json:"computed_at"`
}
