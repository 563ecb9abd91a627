// Package model defines the core domain types for the clinic check-in system.
package model

import "time"

// VisitStatus tracks a client's progress through one event.
type VisitStatus string

const (
	VisitRegistered VisitStatus = "Registered"
	VisitCheckedIn  VisitStatus = "CheckedIn"
	VisitCompleted  VisitStatus = "Completed"
)

// ServiceStatus tracks a single requested service within a visit.
type ServiceStatus string

const (
	ServicePending    ServiceStatus = "Pending"
	ServiceInProgress ServiceStatus = "InProgress"
	ServiceCompleted  ServiceStatus = "Completed"
)

// Valid reports whether s is one of the known service statuses.
func (s ServiceStatus) Valid() bool {
	switch s {
	case ServicePending, ServiceInProgress, ServiceCompleted:
		return true
	}
	return false
}

// StatClientsProcessed is the event-scoped counter bumped on every check-in.
const StatClientsProcessed = "clients_processed"

// Client is a person who may receive services.
type Client struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"first_name"`
	MiddleName       string    `json:"middle_name,omitempty"`
	LastName         string    `json:"last_name"`
	DateOfBirth      time.Time `json:"date_of_birth"`
	NeedsInterpreter bool      `json:"needs_interpreter"`
	CreatedAt        time.Time `json:"created_at"`
}

// Event is a dated occurrence at a location where services are offered.
type Event struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
	IsActive bool      `json:"is_active"`
}

// Service is a category of aid, e.g. medical or dental.
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// EventService is the per-event capacity configuration of a Service.
// A nil MaxCapacity means the service has no cap.
type EventService struct {
	EventID         string `json:"event_id"`
	ServiceID       string `json:"service_id"`
	ServiceName     string `json:"service_name"`
	MaxCapacity     *int   `json:"max_capacity"`
	CurrentAssigned int    `json:"current_assigned"`
	IsClosed        bool   `json:"is_closed"`
}

// Visit is one client's participation in one event.
type Visit struct {
	ID                 string      `json:"id"`
	ClientID           string      `json:"client_id"`
	EventID            string      `json:"event_id"`
	Status             VisitStatus `json:"status"`
	FirstCheckedIn     *time.Time  `json:"first_checked_in"`
	EnteredWaitingRoom *time.Time  `json:"entered_waiting_room"`
}

// VisitService is a client's request for one service during a visit.
type VisitService struct {
	ID        string        `json:"id"`
	VisitID   string        `json:"visit_id"`
	ServiceID string        `json:"service_id"`
	Status    ServiceStatus `json:"status"`
	QueuedAt  time.Time     `json:"queued_at"`
}

// RosterEntry is one checked-in client as shown on the check-in screen.
type RosterEntry struct {
	VisitID            string    `json:"visit_id"`
	ClientID           string    `json:"client_id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	DateOfBirth        time.Time `json:"date_of_birth"`
	NeedsInterpreter   bool      `json:"needs_interpreter"`
	EnteredWaitingRoom time.Time `json:"entered_waiting_room"`
}

// CheckInRequest is the payload for checking a client into the active event.
// NeedsInterpreter is tri-state: nil leaves the stored flag untouched.
type CheckInRequest struct {
	ClientID         string   `json:"client_id"`
	Services         []string `json:"services"`
	NeedsInterpreter *bool    `json:"needs_interpreter,omitempty"`
}

// Rejection explains why a requested service was not queued.
type Rejection struct {
	ServiceID string `json:"service_id"`
	Reason    string `json:"reason"`
}

// CheckInResult summarises a successful check-in.
type CheckInResult struct {
	VisitID          string        `json:"visit_id"`
	FirstCheckIn     bool          `json:"first_check_in"`
	ClientsProcessed int64         `json:"clients_processed"`
	Accepted         []string      `json:"accepted"`
	Rejected         []Rejection   `json:"rejected"`
	CheckedIn        []RosterEntry `json:"checked_in"`
}

// RegisterClientRequest is the payload for registering a new client.
type RegisterClientRequest struct {
	FirstName        string `json:"first_name"`
	MiddleName       string `json:"middle_name"`
	LastName         string `json:"last_name"`
	DateOfBirth      string `json:"date_of_birth"`
	NeedsInterpreter bool   `json:"needs_interpreter"`
}

// AdvanceRequest moves a visit service to a new status.
type AdvanceRequest struct {
	Status ServiceStatus `json:"status"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
