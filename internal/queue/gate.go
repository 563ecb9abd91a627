package queue

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
)

// Policy selects how strictly the gate treats capacity.
type Policy int

const (
	// PolicyCapacity admits only when the service is open and below its cap.
	PolicyCapacity Policy = iota
	// PolicyClosedFlag admits whenever the service is open; the cap is informational.
	PolicyClosedFlag
)

func (p Policy) String() string {
	switch p {
	case PolicyCapacity:
		return "capacity"
	case PolicyClosedFlag:
		return "closed_flag"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a config value to a Policy. Empty selects PolicyCapacity.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "capacity":
		return PolicyCapacity, nil
	case "closed_flag", "closed":
		return PolicyClosedFlag, nil
	}
	return PolicyCapacity, fmt.Errorf("unknown admission policy %q", s)
}

// Rejection reasons reported back to the check-in caller.
const (
	ReasonClosed        = "closed"
	ReasonFull          = "full"
	ReasonUnavailable   = "unavailable"
	ReasonAlreadyQueued = "already_queued"
)

// Decision is the gate's verdict for one service.
type Decision struct {
	Admitted bool
	Reason   string
}

// Gate decides whether a service accepts clients right now.
type Gate struct {
	Policy Policy
}

// Admit decides whether a new selection may be queued for the service.
func (g Gate) Admit(es model.EventService) Decision {
	if es.IsClosed {
		return Decision{Reason: ReasonClosed}
	}
	if g.Policy == PolicyCapacity && es.MaxCapacity != nil && es.CurrentAssigned >= *es.MaxCapacity {
		return Decision{Reason: ReasonFull}
	}
	return Decision{Admitted: true}
}

// Serving reports whether clients already queued for the service may be
// called. Capacity is not consulted: queued clients are already counted.
func (g Gate) Serving(es model.EventService) bool {
	return !es.IsClosed
}
