package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest is the payload for filing a ticket.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AssignTicketRequest is the payload for admin assignment.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// UpdateStatusRequest is the payload for a status transition.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the wire form of a ticket. Status mirrors the stored
// column; EffectiveStatus folds the assignee in, so an open ticket with an
// assignee reads as assigned.
type TicketResponse struct {
	ID              string              `json:"id"`
	ReferenceKey    string              `json:"reference_key"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Status          domain.TicketStatus `json:"status"`
	EffectiveStatus domain.TicketStatus `json:"effective_status"`
	CreatedBy       string              `json:"created_by"`
	AssignedTo      *string             `json:"assigned_to,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TicketHistoryResponse is the wire form of a change trail entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  string                  `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}
