package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAssigned TicketStatus = "ASSIGNED"
	TicketStatusExtended TicketStatus = "EXTENDED"
	TicketStatusDone     TicketStatus = "DONE"
)

// IsValidTicketStatus reports whether the value is a defined state.
func IsValidTicketStatus(status TicketStatus) bool {
	switch status {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusExtended, TicketStatusDone:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	ReferenceKey string
	Title        string
	Description  string
	Status       TicketStatus
	CreatedBy    string
	AssignedTo   *string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectiveStatus treats an open ticket that already carries an assignee as
// assigned. Assignment and the status column stay independent fields; the
// transition graph is evaluated against this derived view.
func (t *Ticket) EffectiveStatus() TicketStatus {
	if t.Status == TicketStatusOpen && t.AssignedTo != nil {
		return TicketStatusAssigned
	}
	return t.Status
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:     {TicketStatusAssigned},
	TicketStatusAssigned: {TicketStatusExtended, TicketStatusDone},
	TicketStatusExtended: {TicketStatusDone},
	TicketStatusDone:     {},
}

// CanTransition reports whether moving from current to next is legal.
// Same-state updates are accepted as no-ops.
func CanTransition(current, next TicketStatus) bool {
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
